package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/netgate-io/netgate/internal/serializer"
)

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		// Device sessions can legitimately run for hours, the client must
		// outlast the broker's reply ceiling.
		http: &http.Client{Timeout: 3 * time.Hour},
	}
}

func (c *apiClient) do(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := serializer.JSON.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return out, fmt.Errorf("broker answered %s", resp.Status)
	}
	return out, nil
}

func (c *apiClient) get(path string) ([]byte, error) {
	return c.do(http.MethodGet, path, nil)
}

func (c *apiClient) post(path string, body any) ([]byte, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *apiClient) put(path string, body any) ([]byte, error) {
	return c.do(http.MethodPut, path, body)
}

func (c *apiClient) delete(path string) ([]byte, error) {
	return c.do(http.MethodDelete, path, nil)
}

// printJSON re-indents a raw API reply for the --json flag.
func printJSON(raw []byte) error {
	var decoded any
	if err := serializer.JSON.Unmarshal(raw, &decoded); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	pretty, err := serializer.JSON.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}
