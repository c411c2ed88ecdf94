package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/pkg/domain"
)

// StudentsPath is the collection holding one record per user, keyed by user ID.
const StudentsPath = "students"

// TokenSource supplies the ID token for store requests. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StoreClient calls the Realtime Database REST API.
type StoreClient struct {
	transport
	databaseURL string
	tokens      TokenSource
	// stream has no overall timeout; the subscription lives until cancelled.
	stream *http.Client
}

// NewStore creates a store client rooted at databaseURL. tokens may be nil.
func NewStore(databaseURL string, tokens TokenSource, timeout time.Duration) *StoreClient {
	return &StoreClient{
		transport:   newTransport(timeout),
		databaseURL: strings.TrimRight(databaseURL, "/"),
		tokens:      tokens,
		stream:      &http.Client{},
	}
}

// Profile fetches the profile stored under userID.
// Returns domain.ErrProfileNotFound when no record exists.
func (c *StoreClient) Profile(ctx context.Context, userID string) (domain.StudentProfile, error) {
	target, err := c.url(ctx, recordPath(userID), nil)
	if err != nil {
		return domain.StudentProfile{}, fmt.Errorf("client.Profile: %w", err)
	}

	var record any
	if err := c.doRequest(ctx, http.MethodGet, target, nil, &record); err != nil {
		return domain.StudentProfile{}, fmt.Errorf("client.Profile: %w", storeError("load profile", err))
	}
	if record == nil {
		return domain.StudentProfile{}, fmt.Errorf("client.Profile: %w", domain.ErrProfileNotFound)
	}
	return domain.ProfileFromRecord(userID, record), nil
}

// Profiles fetches every stored profile, ordered by user ID.
func (c *StoreClient) Profiles(ctx context.Context) ([]domain.StudentProfile, error) {
	target, err := c.url(ctx, StudentsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("client.Profiles: %w", err)
	}

	var root any
	if err := c.doRequest(ctx, http.MethodGet, target, nil, &root); err != nil {
		return nil, fmt.Errorf("client.Profiles: %w", storeError("load directory", err))
	}
	return profilesFromTree(root), nil
}

// StudentIDExists reports whether any stored record has the given student ID.
// The check is a plain query; two concurrent registrations can both pass it.
// Databases whose rules lack `".indexOn": "id"` reject the query, so the
// whole collection is scanned instead.
func (c *StoreClient) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	params := url.Values{}
	params.Set("orderBy", strconv.Quote("id"))
	params.Set("equalTo", strconv.Quote(studentID))
	target, err := c.url(ctx, StudentsPath, params)
	if err != nil {
		return false, fmt.Errorf("client.StudentIDExists: %w", err)
	}

	var matches map[string]any
	err = c.doRequest(ctx, http.MethodGet, target, nil, &matches)
	if isIndexNotDefined(err) {
		log.Warn(log.CatStore, "no index on student id, scanning the directory", "student_id", studentID)
		return c.scanStudentID(ctx, studentID)
	}
	if err != nil {
		return false, fmt.Errorf("client.StudentIDExists: %w", storeError("check student id", err))
	}
	log.Debug(log.CatStore, "student id lookup", "student_id", studentID, "matches", len(matches))
	return len(matches) > 0, nil
}

func (c *StoreClient) scanStudentID(ctx context.Context, studentID string) (bool, error) {
	profiles, err := c.Profiles(ctx)
	if err != nil {
		return false, fmt.Errorf("client.StudentIDExists: %w", err)
	}
	for _, p := range profiles {
		if p.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

// SetProfile writes the full record under userID, replacing any existing one.
func (c *StoreClient) SetProfile(ctx context.Context, userID string, fields domain.ProfileFields) error {
	target, err := c.url(ctx, recordPath(userID), nil)
	if err != nil {
		return fmt.Errorf("client.SetProfile: %w", err)
	}
	if err := c.doRequest(ctx, http.MethodPut, target, fields, nil); err != nil {
		log.ErrorErr(log.CatStore, "set profile failed", err, "uid", userID)
		return fmt.Errorf("client.SetProfile: %w", storeError("save profile", err))
	}
	log.Info(log.CatStore, "profile saved", "uid", userID)
	return nil
}

// UpdateProfile merges fields into the record under userID.
func (c *StoreClient) UpdateProfile(ctx context.Context, userID string, fields domain.ProfileFields) error {
	target, err := c.url(ctx, recordPath(userID), nil)
	if err != nil {
		return fmt.Errorf("client.UpdateProfile: %w", err)
	}
	if err := c.doRequest(ctx, http.MethodPatch, target, fields.Record(), nil); err != nil {
		log.ErrorErr(log.CatStore, "update profile failed", err, "uid", userID)
		return fmt.Errorf("client.UpdateProfile: %w", storeError("update profile", err))
	}
	log.Info(log.CatStore, "profile updated", "uid", userID)
	return nil
}

// url builds the REST URL for path, attaching the current ID token when there is one.
func (c *StoreClient) url(ctx context.Context, path string, params url.Values) (string, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return "", err
		}
		if token != "" {
			params.Set("auth", token)
		}
	}
	return withQuery(c.databaseURL+"/"+path+".json", params), nil
}

func recordPath(userID string) string {
	return StudentsPath + "/" + url.PathEscape(userID)
}

// profilesFromTree decodes the students collection, ordered by key so the
// directory input order is deterministic.
func profilesFromTree(root any) []domain.StudentProfile {
	m, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.StudentProfile, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.ProfileFromRecord(k, m[k]))
	}
	return out
}
