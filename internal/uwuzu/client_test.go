package uwuzu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func testClient(rt roundTripFunc) *Client {
	return NewClient("uwuzu.test", "test-token",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithRateLimit(0),
	)
}

func TestTimelineRequestAndDecode(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodGet {
			return nil, fmt.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/ueuse/" {
			return nil, fmt.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("token") != "test-token" {
			return nil, fmt.Errorf("token = %q", q.Get("token"))
		}
		if q.Get("limit") != "25" || q.Get("page") != "2" {
			return nil, fmt.Errorf("limit/page = %q/%q", q.Get("limit"), q.Get("page"))
		}
		return jsonResponse(r, http.StatusOK, `[
			{"uniqid":"p2","text":"newer","account":{"userid":"u1","username":"alice"}},
			{"uniqid":"p1","text":"older","account":{"userid":"u2","username":"bob"},"nsfw":true}
		]`), nil
	})

	posts, err := client.Timeline(context.Background(), 25, 2)
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "p2" || posts[1].ID != "p1" {
		t.Fatalf("order not preserved: %q, %q", posts[0].ID, posts[1].ID)
	}
	if posts[0].Account.Username != "alice" {
		t.Fatalf("account not decoded: %+v", posts[0].Account)
	}
	if !posts[1].NSFW {
		t.Fatalf("nsfw flag not decoded")
	}
}

func TestTimelineLatestWindowOmitsPage(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Query().Has("page") {
			return nil, fmt.Errorf("latest window must not send a page param")
		}
		return jsonResponse(r, http.StatusOK, `[]`), nil
	})

	if _, err := client.Timeline(context.Background(), 10, 0); err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
}

func TestCreatePostPayload(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			return nil, fmt.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/ueuse/create" {
			return nil, fmt.Errorf("path = %q", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		if payload["token"] != "test-token" {
			return nil, fmt.Errorf("token missing from payload")
		}
		if payload["text"] != "hello" || payload["replyid"] != "p9" {
			return nil, fmt.Errorf("payload = %v", payload)
		}
		if payload["nsfw"] != false {
			return nil, fmt.Errorf("nsfw = %v", payload["nsfw"])
		}
		if _, ok := payload["reuseid"]; ok {
			return nil, fmt.Errorf("empty reuseid must be omitted")
		}
		return jsonResponse(r, http.StatusOK, `{}`), nil
	})

	err := client.CreatePost(context.Background(), NewPost{Text: "hello", ReplyID: "p9"})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}
}

func TestServerErrorWrapsUnavailable(t *testing.T) {
	t.Parallel()

	calls := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(r, http.StatusBadGateway, `oops`), nil
	})

	_, err := client.Timeline(context.Background(), 10, 0)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDecodeFailureWrapsUnavailable(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `not json`), nil
	})

	_, err := client.Timeline(context.Background(), 10, 0)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNotificationsFlattensDigitKeys(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api/me/notification/" {
			return nil, fmt.Errorf("path = %q", r.URL.Path)
		}
		return jsonResponse(r, http.StatusOK, `{
			"1": {"type":"follow","from":{"userid":"u2","username":"bob"}},
			"0": {"type":"favorite","from":{"userid":"u1","username":"alice"}},
			"meta": {"unread": 2}
		}`), nil
	})

	notifications, err := client.Notifications(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("notifications failed: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	if notifications[0].Type != "favorite" || notifications[1].Type != "follow" {
		t.Fatalf("key order not honored: %+v", notifications)
	}
	if notifications[1].From.Username != "bob" {
		t.Fatalf("from user not decoded: %+v", notifications[1].From)
	}
}

func TestGetPostNotFound(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `[]`), nil
	})

	_, err := client.GetPost(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWithLoggerEmitsRequestDebugLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient("uwuzu.test", "test-token",
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusOK, `[]`), nil
		})}),
		WithRateLimit(0),
		WithLogger(logger),
	)

	if _, err := client.Timeline(context.Background(), 10, 0); err != nil {
		t.Fatalf("timeline failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "endpoint=/ueuse/") {
		t.Fatalf("expected endpoint in debug output, got %q", out)
	}
	if !strings.Contains(out, "status=200") {
		t.Fatalf("expected status in debug output, got %q", out)
	}
}

func TestFollowSendsUserID(t *testing.T) {
	t.Parallel()

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/api/users/follow" {
			return nil, fmt.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		if payload["userid"] != "u42" {
			return nil, fmt.Errorf("userid = %v", payload["userid"])
		}
		return jsonResponse(r, http.StatusOK, `{}`), nil
	})

	if err := client.Follow(context.Background(), "u42"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
}
