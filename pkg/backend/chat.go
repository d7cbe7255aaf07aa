package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"lxmf-chat/pkg/model"
)

// PeersPath maps a tab to its peer-list endpoint.
func PeersPath(tab model.Tab) string {
	if tab == model.TabFavorites {
		return "/api/chat/peers/favorites"
	}
	if g, ok := tab.Group(); ok {
		return "/api/chat/peers/group/" + url.PathEscape(g)
	}
	return "/api/chat/peers"
}

// Peers fetches the peer list for a tab. The server answers with either an array
// or {"peers": [...]}.
func (c *Client) Peers(ctx context.Context, tab model.Tab) ([]model.Peer, error) {
	path := PeersPath(tab)
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	var list []model.Peer
	if err := decodeList(body, "peers", &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return list, nil
}

// Messages fetches the messages exchanged with peer.
func (c *Client) Messages(ctx context.Context, peer string) ([]model.Message, error) {
	path := "/api/chat/messages?peer=" + url.QueryEscape(model.NormalizeHash(peer))
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	var list []model.Message
	if err := decodeList(body, "messages", &list); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return list, nil
}

// decodeList accepts a bare JSON array or an object wrapping it under key.
func decodeList(body []byte, key string, out interface{}) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if body[0] == '[' {
		return json.Unmarshal(body, out)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return err
	}
	raw, ok := wrapped[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, out)
}

type sendRequest struct {
	Destination string `json:"destination"`
	Content     string `json:"content"`
}

// Send queues a text message for destination.
func (c *Client) Send(ctx context.Context, destination, content string) error {
	var resp ack
	if err := c.postJSON(ctx, "/api/chat/send", sendRequest{Destination: model.NormalizeHash(destination), Content: content}, &resp); err != nil {
		return err
	}
	return resp.check("send")
}

// FileUpload is a send-file request.
type FileUpload struct {
	Destination string
	FileName    string
	Body        io.Reader
	Description string
	AudioCodec  string // e.g. opus, codec2
	AudioMode   *int
}

// SendFile uploads an attachment as multipart/form-data.
func (c *Client) SendFile(ctx context.Context, up FileUpload) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("destination", model.NormalizeHash(up.Destination)); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	fw, err := mw.CreateFormFile("file", up.FileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, up.Body); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if up.Description != "" {
		_ = mw.WriteField("description", up.Description)
	}
	if up.AudioCodec != "" {
		_ = mw.WriteField("audio_codec", up.AudioCodec)
	}
	if up.AudioMode != nil {
		_ = mw.WriteField("audio_mode", strconv.Itoa(*up.AudioMode))
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/chat/send-file", &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	var resp ack
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode send-file: %w", err)
	}
	return resp.check("send-file")
}

// Raw fetches the stored LXMF payload of a message.
func (c *Client) Raw(ctx context.Context, peer, file string) (model.RawPayload, error) {
	var out model.RawPayload
	path := fmt.Sprintf("/api/chat/raw/%s/%s", url.PathEscape(model.NormalizeHash(peer)), url.PathEscape(file))
	err := c.getJSON(ctx, path, &out)
	return out, err
}

type favoriteResponse struct {
	ack
	Favorite bool `json:"favorite"`
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (c *Client) ToggleFavorite(ctx context.Context, identityHash string) (bool, error) {
	var resp favoriteResponse
	path := "/api/identities/" + url.PathEscape(model.NormalizeHash(identityHash)) + "/favorite"
	if err := c.postJSON(ctx, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Favorite, resp.check("favorite")
}

type groupResponse struct {
	ack
	Groups []string `json:"groups"`
	Added  bool     `json:"added"`
}

// ToggleGroup adds or removes the group tag and returns the peer's groups.
func (c *Client) ToggleGroup(ctx context.Context, identityHash, group string) ([]string, bool, error) {
	var resp groupResponse
	path := "/api/identities/" + url.PathEscape(model.NormalizeHash(identityHash)) + "/group/" + url.PathEscape(group)
	if err := c.postJSON(ctx, path, nil, &resp); err != nil {
		return nil, false, err
	}
	return resp.Groups, resp.Added, resp.check("group")
}

// Identities lists the identities the server can load.
func (c *Client) Identities(ctx context.Context) ([]model.Identity, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/chat/identities", nil, "")
	if err != nil {
		return nil, err
	}
	var list []model.Identity
	if err := decodeList(body, "identities", &list); err != nil {
		return nil, fmt.Errorf("decode identities: %w", err)
	}
	return list, nil
}

// SelectIdentity switches the server to the identity stored at path.
func (c *Client) SelectIdentity(ctx context.Context, path string) (model.Identity, error) {
	var resp struct {
		Identity model.Identity `json:"identity"`
	}
	if err := c.postJSON(ctx, "/api/chat/identities/select", map[string]string{"path": path}, &resp); err != nil {
		return model.Identity{}, err
	}
	id := resp.Identity
	if id.DeliveryHash == "" {
		id.DeliveryHash = id.IdentityHash
	}
	if id.Path == "" {
		id.Path = path
	}
	return id, nil
}
