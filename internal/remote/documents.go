package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"docflow/internal/model"
)

// File is an upload: a PDF and the name it is sent under.
type File struct {
	Filename string
	Content  io.Reader
}

// CreateRequest is the multipart body of POST /document.
type CreateRequest struct {
	Name   string
	Status model.Status
	File   File
}

// List fetches one page. q.Page is 0-based; the store counts pages from 1.
func (c *Client) List(ctx context.Context, q model.PageQuery) (*model.Page, error) {
	q = q.Normalize()
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page+1))
	params.Set("size", strconv.Itoa(q.Size))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}

	var page model.Page
	err := c.call(ctx, "document.list", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/document?"+params.Encode(), nil, &page)
	})
	if err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []model.Document{}
	}
	return &page, nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := c.call(ctx, "document.get", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, documentPath(id, ""), nil, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Content streams the stored PDF. The caller closes the reader.
func (c *Client) Content(ctx context.Context, id string) (io.ReadCloser, error) {
	return c.download(ctx, "document.content", func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, documentPath(id, "/content"), nil)
	})
}

// Fetch downloads an absolute file URL, such as a document's fileUrl.
// The bearer token is only sent to the store's own host.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return c.download(ctx, "document.fetch", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(rawURL, c.baseURL+"/") && c.tokens != nil {
			if tok := c.tokens.Token(); tok != "" {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
		}
		return req, nil
	})
}

func (c *Client) download(ctx context.Context, operation string, build func(context.Context) (*http.Request, error)) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := c.call(ctx, operation, func(ctx context.Context) error {
		req, err := build(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/pdf")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("document store request: %w", err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return c.failed(req, resp)
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) Create(ctx context.Context, in CreateRequest) (*model.Document, error) {
	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	body, contentType, err := multipartBody(map[string]string{
		"name":   in.Name,
		"status": string(status),
	}, in.File)
	if err != nil {
		return nil, err
	}

	var doc model.Document
	err = c.call(ctx, "document.create", func(ctx context.Context) error {
		return c.doMultipart(ctx, http.MethodPost, "/document", body, contentType, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) UpdateName(ctx context.Context, id, name string) (*model.Document, error) {
	var doc model.Document
	err := c.call(ctx, "document.update_name", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPatch, documentPath(id, ""), map[string]string{"name": name}, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) ReplaceContent(ctx context.Context, id string, file File) (*model.Document, error) {
	body, contentType, err := multipartBody(nil, file)
	if err != nil {
		return nil, err
	}

	var doc model.Document
	err = c.call(ctx, "document.replace_content", func(ctx context.Context) error {
		return c.doMultipart(ctx, http.MethodPut, documentPath(id, "/content"), body, contentType, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, "document.delete", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodDelete, documentPath(id, ""), nil, nil)
	})
}

func (c *Client) SendToReview(ctx context.Context, id string) (*model.Document, error) {
	return c.post(ctx, "document.send_to_review", documentPath(id, "/send-to-review"), nil)
}

func (c *Client) RevokeReview(ctx context.Context, id string) (*model.Document, error) {
	return c.post(ctx, "document.revoke_review", documentPath(id, "/revoke-review"), nil)
}

func (c *Client) ChangeStatus(ctx context.Context, id string, status model.Status) (*model.Document, error) {
	return c.post(ctx, "document.change_status", documentPath(id, "/change-status"), map[string]model.Status{"status": status})
}

func (c *Client) post(ctx context.Context, operation, path string, payload any) (*model.Document, error) {
	var doc model.Document
	err := c.call(ctx, operation, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, path, payload, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func documentPath(id, suffix string) string {
	return "/document/" + url.PathEscape(id) + suffix
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("document store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.failed(req, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func multipartBody(fields map[string]string, file File) ([]byte, string, error) {
	if file.Content == nil {
		return nil, "", fmt.Errorf("file is required")
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
