// Package crashclient talks to the ClusterFuzz testcase-detail API: it
// authenticates interactively when needed, caches the resulting session
// header, and retries once on a rejected or expired session.
package crashclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/crashtest"
	"github.com/alexisbeaulieu97/clusterfuzz-reproduce/internal/logger"
	cferrors "github.com/alexisbeaulieu97/clusterfuzz-reproduce/pkg/errors"
)

const (
	authHeaderName = "x-clusterfuzz-authorization"
	userAgent      = "clusterfuzz-reproduce-tool"
	oauthURL       = "https://accounts.google.com/o/oauth2/v2/auth" +
		"?scope=email+profile&response_type=code&redirect_uri=urn:ietf:wg:oauth:2.0:oob"
)

// Client fetches testcase metadata from ClusterFuzz, re-authenticating
// through the browser when its cached session header is missing or rejected.
type Client struct {
	httpClient  *retryablehttp.Client
	domain      string
	authCache   string
	log         *logger.Logger
	interactive bool
}

// New constructs a Client. authCachePath is where the session header
// persists between runs (mirroring get_stored_auth_header/store_auth_header).
func New(domain, authCachePath string, log *logger.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.Logger = nil

	return &Client{
		httpClient:  httpClient,
		domain:      domain,
		authCache:   authCachePath,
		log:         log,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// FetchTestcase retrieves and parses testcase metadata for id, authenticating
// (and retrying once) if the cached session is missing or expired.
func (c *Client) FetchTestcase(ctx context.Context, id string) (*crashtest.Testcase, error) {
	url := fmt.Sprintf("https://%s/v2/testcase-detail/refresh", c.domain)
	payload, err := json.Marshal(map[string]string{"testcaseId": id})
	if err != nil {
		return nil, fmt.Errorf("crashclient: marshal request: %w", err)
	}

	resp, err := c.authorizedDo(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, cferrors.NewAuthError(fmt.Sprintf("clusterfuzz returned status %d", resp.StatusCode), nil)
	}

	body := &bytes.Buffer{}
	if _, err := body.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("crashclient: read response: %w", err)
	}

	return crashtest.ParseTestcase(body.Bytes())
}

// DownloadArchive fetches the testcase's recorded input archive from the
// download-testcase endpoint into destDir, mirroring get_testcase_path's
// "wget --content-disposition" call, and returns the name it was saved
// under.
func (c *Client) DownloadArchive(ctx context.Context, testcaseID int64, destDir string) (string, error) {
	url := fmt.Sprintf("https://%s/v2/testcase-detail/download-testcase?id=%d", c.domain, testcaseID)

	resp, err := c.authorizedDo(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", cferrors.NewAuthError(fmt.Sprintf("clusterfuzz returned status %d downloading testcase %d", resp.StatusCode, testcaseID), nil)
	}

	filename := filenameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = fmt.Sprintf("%d_testcase", testcaseID)
	}

	dst, err := os.OpenFile(filepath.Join(destDir, filename), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("crashclient: create testcase archive file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return "", fmt.Errorf("crashclient: write testcase archive: %w", err)
	}

	return filename, nil
}

func filenameFromContentDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return filepath.Base(params["filename"])
}

// authorizedDo sends a request with the cached (or freshly obtained) session
// header, re-authenticating once and retrying on a missing or rejected
// session, then persists any renewed header the response carries back.
func (c *Client) authorizedDo(ctx context.Context, method, url string, payload []byte) (*http.Response, error) {
	header := c.loadCachedHeader()
	correlationID := uuid.NewString()

	var resp *http.Response
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if header == "" || (resp != nil && resp.StatusCode == http.StatusUnauthorized) {
			header, err = c.authenticate()
			if err != nil {
				return nil, err
			}
		}

		resp, err = c.doRequest(ctx, method, url, payload, header, correlationID)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			break
		}
	}

	if stored := resp.Header.Get(authHeaderName); stored != "" {
		c.storeHeader(stored)
	}
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, payload []byte, header, correlationID string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("crashclient: build request: %w", err)
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crashclient: request failed: %w", err)
	}
	return resp, nil
}

// authenticate opens the OAuth consent page in a browser and prompts for the
// resulting verification code, mirroring get_verification_header. It fails
// fast in a non-interactive session instead of hanging on a prompt.
func (c *Client) authenticate() (string, error) {
	if !c.interactive {
		return "", cferrors.NewAuthError("no cached session and stdin is not a terminal", nil)
	}

	c.log.Info("Open this URL to authenticate with ClusterFuzz: " + oauthURL)
	if err := openBrowser(oauthURL); err != nil {
		c.log.Warn("could not open a browser automatically: " + err.Error())
	}

	var code string
	prompt := &survey.Input{Message: "Enter the verification code shown after login:"}
	if err := survey.AskOne(prompt, &code); err != nil {
		return "", cferrors.NewAuthError("verification code prompt failed", err)
	}
	if strings.TrimSpace(code) == "" {
		return "", cferrors.NewAuthError("empty verification code", nil)
	}

	return "VerificationCode " + code, nil
}

func (c *Client) loadCachedHeader() string {
	if c.authCache == "" {
		return ""
	}
	data, err := os.ReadFile(c.authCache)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *Client) storeHeader(header string) {
	if c.authCache == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.authCache), 0o700); err != nil {
		c.log.Warn("could not persist auth header: " + err.Error())
		return
	}
	if err := os.WriteFile(c.authCache, []byte(header), 0o600); err != nil {
		c.log.Warn("could not persist auth header: " + err.Error())
	}
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
