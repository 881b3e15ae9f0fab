package uwuzu

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bakkerme/uwuzu-watch/internal/retry"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "uwuzu-watch/0.1"

// Client talks to a single uwuzu instance. The API authenticates with a
// bearer-style token passed as a query parameter on GETs and inside the
// JSON body on POSTs.
//
// Timeline responses are ordered newest-first; page 1 holds the most
// recent posts. The watch and walk packages depend on that ordering.
type Client struct {
	baseURL   string
	token     string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRateLimit caps outgoing requests at rps requests per second.
// Zero or negative disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger attaches a logger used for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for https://<domain>/api using the given
// access token.
func NewClient(domain, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:   "https://" + domain + "/api",
		token:     token,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAccessToken exchanges a browser session id for an API token.
func GetAccessToken(ctx context.Context, domain, sessionID string) (string, error) {
	body, err := json.Marshal(map[string]string{"session": sessionID})
	if err != nil {
		return "", err
	}
	endpoint := "https://" + domain + "/api/token/get"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get token: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("get token: %s: %w", resp.Status, ErrUnavailable)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %v: %w", err, ErrUnavailable)
	}
	return payload.Token, nil
}

// ServerInfo fetches metadata about the remote instance.
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.get(ctx, "/serverinfo-api", nil, &info)
	return info, err
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.get(ctx, "/me/", nil, &user)
	return user, err
}

// Notifications lists the notification inbox. The server returns an
// object keyed by decimal strings rather than a JSON array; entries are
// flattened back into a slice in key order.
func (c *Client) Notifications(ctx context.Context, limit, page int) ([]Notification, error) {
	var raw map[string]json.RawMessage
	if err := c.get(ctx, "/me/notification/", pageParams(limit, page), &raw); err != nil {
		return nil, err
	}

	keys := make([]int, 0, len(raw))
	for k := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)

	notifications := make([]Notification, 0, len(keys))
	for _, k := range keys {
		var n Notification
		if err := json.Unmarshal(raw[strconv.Itoa(k)], &n); err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// ReadNotifications marks every notification as read.
func (c *Client) ReadNotifications(ctx context.Context) error {
	return c.post(ctx, "/me/notification/read", map[string]any{}, nil)
}

// UpdateProfile edits the authenticated account. Icon and header paths,
// if set, must point at local image files.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	payload := map[string]any{}
	if update.Username != "" {
		payload["username"] = update.Username
	}
	if update.Profile != "" {
		payload["profile"] = update.Profile
	}
	if update.IconPath != "" {
		encoded, err := encodeImage(update.IconPath)
		if err != nil {
			return err
		}
		payload["icon"] = encoded
	}
	if update.HeaderPath != "" {
		encoded, err := encodeImage(update.HeaderPath)
		if err != nil {
			return err
		}
		payload["header"] = encoded
	}
	return c.post(ctx, "/me/settings/", payload, nil)
}

// GetUser fetches a single account by id.
func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := c.get(ctx, "/users/", url.Values{"userid": {userID}}, &user)
	return user, err
}

// Follow subscribes the authenticated account to userID.
func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.post(ctx, "/users/follow", map[string]any{"userid": userID}, nil)
}

// Unfollow removes a subscription.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.post(ctx, "/users/unfollow", map[string]any{"userid": userID}, nil)
}

// Timeline fetches one page of the home timeline, newest-first. Page 1
// is the most recent; page 0 means "latest window" (no page parameter).
func (c *Client) Timeline(ctx context.Context, limit, page int) ([]Post, error) {
	var posts []Post
	if err := c.get(ctx, "/ueuse/", pageParams(limit, page), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost fetches one post by id.
func (c *Client) GetPost(ctx context.Context, postID string) (Post, error) {
	var posts []Post
	if err := c.get(ctx, "/ueuse/get", url.Values{"uniqid": {postID}}, &posts); err != nil {
		return Post{}, err
	}
	if len(posts) == 0 {
		return Post{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return posts[0], nil
}

// Replies lists replies to a post, newest-first.
func (c *Client) Replies(ctx context.Context, postID string, limit, page int) ([]Post, error) {
	params := pageParams(limit, page)
	params.Set("uniqid", postID)
	var posts []Post
	if err := c.get(ctx, "/ueuse/replies", params, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Mentions lists posts mentioning the authenticated account.
func (c *Client) Mentions(ctx context.Context, limit, page int) ([]Post, error) {
	var posts []Post
	if err := c.get(ctx, "/ueuse/mentions", pageParams(limit, page), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Search runs a keyword search over posts.
func (c *Client) Search(ctx context.Context, keyword string, limit, page int) ([]Post, error) {
	params := pageParams(limit, page)
	params.Set("keyword", keyword)
	var posts []Post
	if err := c.get(ctx, "/ueuse/search", params, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Bookmarks lists the authenticated account's bookmarked posts.
func (c *Client) Bookmarks(ctx context.Context, limit, page int) ([]Post, error) {
	var posts []Post
	if err := c.get(ctx, "/ueuse/bookmark/", pageParams(limit, page), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreatePost publishes a new post. At most four images are attached;
// extra paths are ignored, matching the server limit.
func (c *Client) CreatePost(ctx context.Context, post NewPost) error {
	payload := map[string]any{
		"text": post.Text,
		"nsfw": post.NSFW,
	}
	if post.ReplyID != "" {
		payload["replyid"] = post.ReplyID
	}
	if post.ReuseID != "" {
		payload["reuseid"] = post.ReuseID
	}
	paths := post.ImagePaths
	if len(paths) > 4 {
		paths = paths[:4]
	}
	for i, path := range paths {
		encoded, err := encodeImage(path)
		if err != nil {
			return err
		}
		payload[fmt.Sprintf("image%d", i+1)] = encoded
	}
	return c.post(ctx, "/ueuse/create", payload, nil)
}

// DeletePost removes a post owned by the authenticated account.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.post(ctx, "/ueuse/delete", map[string]any{"uniqid": postID}, nil)
}

// FavoriteChange toggles the favorite state of a post.
func (c *Client) FavoriteChange(ctx context.Context, postID string) error {
	// The endpoint spelling is the server's, not ours.
	return c.post(ctx, "/farovite/change", map[string]any{"uniqid": postID}, nil)
}

// FavoriteGet returns the favorite state of a post.
func (c *Client) FavoriteGet(ctx context.Context, postID string) (Favorites, error) {
	var favorites Favorites
	err := c.get(ctx, "/farovite/get", url.Values{"uniqid": {postID}}, &favorites)
	return favorites, err
}

// AdminGetUser fetches an account with admin-level detail.
func (c *Client) AdminGetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := c.post(ctx, "/admin/users/", map[string]any{"userid": userID}, &user)
	return user, err
}

// AdminSanction applies a moderation action to a user.
func (c *Client) AdminSanction(ctx context.Context, req SanctionRequest) error {
	payload := map[string]any{
		"userid": req.UserID,
		"type":   req.Type,
	}
	if req.Title != "" {
		payload["notification_title"] = req.Title
	}
	if req.Message != "" {
		payload["notification_message"] = req.Message
	}
	if req.Really != "" {
		payload["really"] = req.Really
	}
	return c.post(ctx, "/admin/users/sanction", payload, nil)
}

// AdminReports lists open moderation reports.
func (c *Client) AdminReports(ctx context.Context, limit, page int) ([]Report, error) {
	payload := map[string]any{}
	if limit > 0 {
		payload["limit"] = limit
	}
	if page > 0 {
		payload["page"] = page
	}
	var reports []Report
	if err := c.post(ctx, "/admin/reports/", payload, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// AdminResolveReport closes reports for a user and/or post.
func (c *Client) AdminResolveReport(ctx context.Context, reportedUserID, postID string) error {
	payload := map[string]any{}
	if reportedUserID != "" {
		payload["reported_userid"] = reportedUserID
	}
	if postID != "" {
		payload["uniqid"] = postID
	}
	return c.post(ctx, "/admin/reports/resolve", payload, nil)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	return c.do(ctx, http.MethodGet, endpoint, params, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]any, out any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["token"] = c.token
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body []byte, out any) error {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	return retry.Do(ctx, retry.Config{Attempts: 3}, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %v: %w", strings.ToLower(method), endpoint, err, ErrUnavailable)
		}
		defer resp.Body.Close()

		c.logger.Debug("api request",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
		)

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("%s %s: %s: %w", strings.ToLower(method), endpoint, resp.Status, ErrUnavailable)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %v: %w", endpoint, err, ErrUnavailable)
		}
		return nil
	})
}

func pageParams(limit, page int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	return params
}

func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
