package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/pkg/logger"
)

const DefaultBaseURL = "https://cloud.lambdalabs.com/api/v1"

// KeyFunc resolves the current provider API key on every call, rather than capturing it
// once at startup — the admin settings endpoint can rotate `lambdaApiKey` without a
// restart (§9: "mutate lambdaApiKey via settings without restart").
type KeyFunc func(ctx context.Context) (string, error)

// LambdaClient implements Client against the upstream provider's REST API. Auth is HTTP
// Basic with the API key as username and an empty password, matching the real Lambda
// Cloud convention (§6.2's lambdaApiKey setting).
type LambdaClient struct {
	keyFunc    KeyFunc
	baseURL    string
	httpClient *http.Client
}

func NewLambdaClient(keyFunc KeyFunc, baseURL string, timeout time.Duration) *LambdaClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &LambdaClient{
		keyFunc: keyFunc,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *LambdaClient) ListInstanceTypes(ctx context.Context) ([]InstanceType, error) {
	resp, err := c.request(ctx, "GET", "/instance-types", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data map[string]struct {
			InstanceType struct {
				Name            string `json:"name"`
				Description     string `json:"description"`
				PriceCentsPerHr int64  `json:"price_cents_per_hour"`
				Specs           struct {
					GPUs int `json:"gpus"`
				} `json:"specs"`
			} `json:"instance_type"`
			RegionsWithCapacityAvailable []struct {
				Name string `json:"name"`
			} `json:"regions_with_capacity_available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode instance-types response", err)
	}

	out := make([]InstanceType, 0, len(result.Data))
	for _, entry := range result.Data {
		regions := make([]string, 0, len(entry.RegionsWithCapacityAvailable))
		for _, r := range entry.RegionsWithCapacityAvailable {
			regions = append(regions, r.Name)
		}
		out = append(out, InstanceType{
			Name:              entry.InstanceType.Name,
			Description:       entry.InstanceType.Description,
			PriceCentsPerHour: entry.InstanceType.PriceCentsPerHr,
			GPUs:              entry.InstanceType.Specs.GPUs,
			AvailableRegions:  regions,
		})
	}
	return out, nil
}

func (c *LambdaClient) LaunchInstance(ctx context.Context, spec LaunchSpec) (*Instance, error) {
	reqBody := map[string]interface{}{
		"region_name":        spec.Region,
		"instance_type_name": spec.InstanceType,
		"ssh_key_names":      spec.SSHKeyNames,
		"file_system_names":  spec.FilesystemNames,
		"user_data":          spec.UserData,
		"name":               spec.Name,
	}

	resp, err := c.request(ctx, "POST", "/instance-operations/launch", reqBody)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data struct {
			InstanceIDs []string `json:"instance_ids"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode launch response", err)
	}
	if len(result.Data.InstanceIDs) == 0 {
		return nil, apperr.UpstreamPermanent("launch returned no instance id", nil)
	}

	return c.GetInstance(ctx, result.Data.InstanceIDs[0])
}

func (c *LambdaClient) GetInstance(ctx context.Context, instanceID string) (*Instance, error) {
	resp, err := c.request(ctx, "GET", "/instances/"+instanceID, nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data lambdaInstance `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode instance response", err)
	}
	inst := result.Data.toInstance()
	return &inst, nil
}

func (c *LambdaClient) ListInstances(ctx context.Context) ([]Instance, error) {
	resp, err := c.request(ctx, "GET", "/instances", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data []lambdaInstance `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode instances response", err)
	}
	out := make([]Instance, 0, len(result.Data))
	for _, d := range result.Data {
		out = append(out, d.toInstance())
	}
	return out, nil
}

func (c *LambdaClient) TerminateInstance(ctx context.Context, instanceID string) error {
	return c.TerminateInstances(ctx, []string{instanceID})
}

func (c *LambdaClient) TerminateInstances(ctx context.Context, instanceIDs []string) error {
	if len(instanceIDs) == 0 {
		return nil
	}
	_, err := c.request(ctx, "POST", "/instance-operations/terminate", map[string]interface{}{
		"instance_ids": instanceIDs,
	})
	return err
}

func (c *LambdaClient) RestartInstance(ctx context.Context, instanceID string) error {
	_, err := c.request(ctx, "POST", "/instance-operations/restart", map[string]interface{}{
		"instance_ids": []string{instanceID},
	})
	return err
}

func (c *LambdaClient) AddSSHKey(ctx context.Context, name, publicKey string) (string, error) {
	resp, err := c.request(ctx, "POST", "/ssh-keys", map[string]interface{}{
		"name":       name,
		"public_key": publicKey,
	})
	if err != nil {
		return "", err
	}
	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", apperr.UpstreamPermanent("decode ssh-key response", err)
	}
	return result.Data.ID, nil
}

func (c *LambdaClient) ListSSHKeys(ctx context.Context) ([]SSHKey, error) {
	resp, err := c.request(ctx, "GET", "/ssh-keys", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode ssh-keys response", err)
	}
	out := make([]SSHKey, 0, len(result.Data))
	for _, d := range result.Data {
		out = append(out, SSHKey{ID: d.ID, Name: d.Name})
	}
	return out, nil
}

func (c *LambdaClient) DeleteSSHKey(ctx context.Context, keyID string) error {
	_, err := c.request(ctx, "DELETE", "/ssh-keys/"+keyID, nil)
	return err
}

func (c *LambdaClient) ListFilesystems(ctx context.Context) ([]Filesystem, error) {
	resp, err := c.request(ctx, "GET", "/file-systems", nil)
	if err != nil {
		return nil, err
	}
	var result struct {
		Data []lambdaFilesystem `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode file-systems response", err)
	}
	out := make([]Filesystem, 0, len(result.Data))
	for _, d := range result.Data {
		out = append(out, d.toFilesystem())
	}
	return out, nil
}

func (c *LambdaClient) CreateFilesystem(ctx context.Context, name, region string) (*Filesystem, error) {
	resp, err := c.request(ctx, "POST", "/file-systems", map[string]interface{}{
		"name":   name,
		"region": region,
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Data lambdaFilesystem `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, apperr.UpstreamPermanent("decode file-system response", err)
	}
	fs := result.Data.toFilesystem()
	return &fs, nil
}

func (c *LambdaClient) DeleteFilesystem(ctx context.Context, filesystemID string) error {
	_, err := c.request(ctx, "DELETE", "/file-systems/"+filesystemID, nil)
	return err
}

// ===== wire types =====

type lambdaInstance struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	Region       struct{ Name string `json:"name"` } `json:"region"`
	InstanceType struct{ Name string `json:"name"` } `json:"instance_type"`
	IP           string   `json:"ip"`
	SSHKeyNames  []string `json:"ssh_key_names"`
	FileSystemNames []string `json:"file_system_names"`
}

func (i lambdaInstance) toInstance() Instance {
	return Instance{
		ID:           i.ID,
		Name:         i.Name,
		Status:       i.Status,
		InstanceType: i.InstanceType.Name,
		Region:       i.Region.Name,
		IPAddress:    i.IP,
		SSHKeyNames:  i.SSHKeyNames,
		Filesystems:  i.FileSystemNames,
	}
}

type lambdaFilesystem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Region    struct{ Name string `json:"name"` } `json:"region"`
	Bytes     int64  `json:"bytes_used"`
	CreatedAt string `json:"created"`
}

func (f lambdaFilesystem) toFilesystem() Filesystem {
	created, _ := time.Parse(time.RFC3339, f.CreatedAt)
	return Filesystem{
		ID:        f.ID,
		Name:      f.Name,
		Region:    f.Region.Name,
		Bytes:     f.Bytes,
		CreatedAt: created,
	}
}

// request issues an authenticated call and classifies failures the way the scheduler and
// reconciler need: 5xx and 429 are upstream-transient (worth retrying), other 4xx are
// upstream-permanent.
func (c *LambdaClient) request(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("marshal request body: %w", err))
		}
		reqBody = bytes.NewBuffer(data)
	}

	apiKey, err := c.keyFunc(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("resolve provider api key: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("build request: %w", err))
	}
	req.SetBasicAuth(apiKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.UpstreamTransient("provider request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.UpstreamTransient("read provider response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	logger.Warn("provider request failed", map[string]interface{}{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	})

	msg := fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apperr.UpstreamTransient("provider unavailable", msg)
	}
	return nil, apperr.UpstreamPermanent("provider rejected request", msg)
}
