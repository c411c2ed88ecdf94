package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/pkg/domain"
)

// maxEventSize bounds a single server-sent event line; a full snapshot
// of the collection arrives as one line.
const maxEventSize = 16 << 20

// Snapshot is the full students collection after one change, or the error
// that ended the subscription. Err is set only on the final snapshot.
type Snapshot struct {
	Profiles []domain.StudentProfile
	Err      error
}

// Subscribe streams the students collection. The first snapshot is the
// current state; each later one follows a remote change. The channel is
// closed when ctx is cancelled or after a snapshot carrying Err.
func (c *StoreClient) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	target, err := c.url(ctx, StudentsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("client.Subscribe: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("client.Subscribe: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Subscribe: %w", storeError("subscribe", err))
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close() //nolint:errcheck // best-effort close
		return nil, fmt.Errorf("client.Subscribe: %w", storeError("subscribe", readHTTPError(resp)))
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		defer resp.Body.Close() //nolint:errcheck // best-effort close

		err := readEvents(ctx, resp.Body, out)
		if ctx.Err() != nil {
			log.Debug(log.CatStream, "subscription cancelled")
			return
		}
		log.ErrorErr(log.CatStream, "subscription ended", err)
		select {
		case out <- Snapshot{Err: err}:
		case <-ctx.Done():
		}
	}()
	log.Info(log.CatStream, "subscribed", "path", StudentsPath)
	return out, nil
}

type sseEvent struct {
	name string
	data string
}

type patchData struct {
	Path string `json:"path"`
	Data any    `json:"data"`
}

// readEvents applies events to a local copy of the collection and sends a
// snapshot after each change. It returns the error that ended the stream.
func readEvents(ctx context.Context, body io.Reader, out chan<- Snapshot) error {
	var tree any
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var ev sseEvent
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			ev.data = strings.Join(data, "\n")
			data = data[:0]
			changed, err := applyEvent(&tree, ev)
			ev = sseEvent{}
			if err != nil {
				return err
			}
			if !changed {
				continue
			}
			select {
			case out <- Snapshot{Profiles: profilesFromTree(tree)}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return &domain.RemoteError{Op: "subscribe", Err: err}
	}
	return &domain.RemoteError{Op: "subscribe", Err: io.ErrUnexpectedEOF}
}

// applyEvent updates tree for put and patch events. It reports whether the
// tree changed, or the error carried by a terminal event.
func applyEvent(tree *any, ev sseEvent) (bool, error) {
	switch ev.name {
	case "put", "patch":
		var pd patchData
		if err := json.Unmarshal([]byte(ev.data), &pd); err != nil {
			return false, &domain.RemoteError{Op: "subscribe", Message: "malformed " + ev.name + " event", Err: err}
		}
		segs := splitPath(pd.Path)
		if ev.name == "put" {
			*tree = setPath(*tree, segs, pd.Data)
			return true, nil
		}
		children, _ := pd.Data.(map[string]any)
		for k, v := range children {
			*tree = setPath(*tree, append(segs[:len(segs):len(segs)], splitPath(k)...), v)
		}
		return true, nil
	case "keep-alive", "":
		return false, nil
	case "cancel":
		return false, &domain.RemoteError{Op: "subscribe", Message: "subscription cancelled by server: " + unquote(ev.data)}
	case "auth_revoked":
		return false, fmt.Errorf("subscribe: %w", domain.ErrNotSignedIn)
	default:
		log.Debug(log.CatStream, "ignoring event", "event", ev.name)
		return false, nil
	}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// setPath writes data at segs below node and returns the new node.
// A nil value deletes, and objects left empty collapse to nil.
func setPath(node any, segs []string, data any) any {
	if len(segs) == 0 {
		if isEmpty(data) {
			return nil
		}
		return data
	}
	m, ok := node.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	child := setPath(m[segs[0]], segs[1:], data)
	if isEmpty(child) {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

func unquote(s string) string {
	var text string
	if json.Unmarshal([]byte(s), &text) != nil {
		text = s
	}
	if text == "" {
		return "no reason given"
	}
	return text
}
