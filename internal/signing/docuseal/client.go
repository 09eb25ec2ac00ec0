package docuseal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signing-engine/internal/signing"
)

const (
	providerName = "docuseal"

	defaultBaseURL = "https://api.docuseal.com"

	// Letter-size page dimensions in points.
	pageWidth  = 612.0
	pageHeight = 792.0
)

// Config contains the configuration for the DocuSeal client.
type Config struct {
	APIKey  string
	BaseURL string
}

// Validate checks the configuration and normalizes the base URL.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("docuseal: API key is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

// Client implements signing.Provider for DocuSeal.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a new DocuSeal client.
func New(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// UploadDocument uploads a PDF to DocuSeal and creates a submission.
func (c *Client) UploadDocument(ctx context.Context, req *signing.UploadRequest) (*signing.UploadResult, error) {
	submission := c.buildSubmissionRequest(req)

	respBody, err := c.doRequest(ctx, http.MethodPost, "/submissions/pdf", submission)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	var submitters []submitterResponse
	if err := json.Unmarshal(respBody, &submitters); err != nil {
		return nil, fmt.Errorf("decode submission response: %w", err)
	}
	if len(submitters) == 0 {
		return nil, errors.New("docuseal returned no submitters")
	}

	return c.buildUploadResult(submitters, req.Recipients), nil
}

// CancelDocument archives a submission in DocuSeal.
func (c *Client) CancelDocument(ctx context.Context, providerDocumentID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/submissions/"+providerDocumentID, nil)
	return err
}

// ResendNotification re-triggers the signature request email for a submitter.
func (c *Client) ResendNotification(ctx context.Context, providerDocumentID string, providerRecipientID string) error {
	body := map[string]any{"send_email": true}
	_, err := c.doRequest(ctx, http.MethodPut, "/submitters/"+providerRecipientID, body)
	return err
}

func (c *Client) buildSubmissionRequest(req *signing.UploadRequest) submissionRequest {
	roleToName := make(map[string]string, len(req.Recipients))
	submitters := make([]submitterRequest, len(req.Recipients))

	for i, r := range req.Recipients {
		roleName := fmt.Sprintf("Signer%d", i+1)
		roleToName[r.RoleID] = roleName
		submitters[i] = submitterRequest{
			Role:       roleName,
			Email:      r.Email,
			Name:       r.Name,
			ExternalID: r.RoleID,
		}
	}

	return submissionRequest{
		Name: req.Title,
		Documents: []documentRequest{{
			Name:   "document.pdf",
			File:   base64.StdEncoding.EncodeToString(req.PDF),
			Fields: c.buildFields(req.SignatureFields, roleToName),
		}},
		Submitters: submitters,
		SendEmail:  true,
		Order:      "preserved",
	}
}

func (c *Client) buildFields(fields []signing.SignatureFieldPlacement, roleToName map[string]string) []fieldRequest {
	result := make([]fieldRequest, 0, len(fields))
	for i, sf := range fields {
		roleName, ok := roleToName[sf.RoleID]
		if !ok {
			continue
		}
		result = append(result, fieldRequest{
			Name:     fmt.Sprintf("signature_%d", i+1),
			Role:     roleName,
			Type:     "signature",
			Required: true,
			Areas:    []fieldArea{convertToPoints(sf)},
		})
	}
	return result
}

// convertToPoints converts percentage-based placement to page points.
func convertToPoints(sf signing.SignatureFieldPlacement) fieldArea {
	return fieldArea{
		Page: sf.Page,
		X:    int(sf.PositionX / 100.0 * pageWidth),
		Y:    int(sf.PositionY / 100.0 * pageHeight),
		W:    int(sf.Width / 100.0 * pageWidth),
		H:    int(sf.Height / 100.0 * pageHeight),
	}
}

func (c *Client) buildUploadResult(submitters []submitterResponse, requested []signing.Recipient) *signing.UploadResult {
	result := &signing.UploadResult{
		ProviderDocumentID: strconv.Itoa(submitters[0].SubmissionID),
		ProviderName:       providerName,
		Recipients:         make([]signing.RecipientResult, 0, len(submitters)),
	}

	for _, s := range submitters {
		roleID := s.ExternalID
		if roleID == "" {
			// Fallback: match by email when DocuSeal drops the external id.
			for _, orig := range requested {
				if orig.Email == s.Email {
					roleID = orig.RoleID
					break
				}
			}
		}
		result.Recipients = append(result.Recipients, signing.RecipientResult{
			RoleID:              roleID,
			ProviderRecipientID: strconv.Itoa(s.ID),
			SigningURL:          s.EmbedSrc,
		})
	}
	return result
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("X-Auth-Token", c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("docuseal API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

var _ signing.Provider = (*Client)(nil)

// API request/response types.

type submissionRequest struct {
	Name       string             `json:"name"`
	Documents  []documentRequest  `json:"documents"`
	Submitters []submitterRequest `json:"submitters"`
	SendEmail  bool               `json:"send_email"`
	Order      string             `json:"order"`
}

type documentRequest struct {
	Name   string         `json:"name"`
	File   string         `json:"file"`
	Fields []fieldRequest `json:"fields,omitempty"`
}

type fieldRequest struct {
	Name     string      `json:"name"`
	Role     string      `json:"role"`
	Type     string      `json:"type"`
	Required bool        `json:"required"`
	Areas    []fieldArea `json:"areas"`
}

type fieldArea struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	W    int `json:"w"`
	H    int `json:"h"`
	Page int `json:"page"`
}

type submitterRequest struct {
	Role       string `json:"role"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

type submitterResponse struct {
	ID           int    `json:"id"`
	SubmissionID int    `json:"submission_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	EmbedSrc     string `json:"embed_src"`
	Status       string `json:"status"`
	ExternalID   string `json:"external_id,omitempty"`
}
