package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// ZoteroOptions configures the Zotero Web API client
type ZoteroOptions struct {
	BaseURL     string
	LibraryType string // "user" or "group"
	LibraryID   string
	APIKey      string
	Categories  []string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Zotero publishes organized files as Zotero items with a linked-file attachment
type Zotero struct {
	client     fastshot.ClientHttpMethods
	prefix     string
	categories map[string]bool
	logger     *slog.Logger
}

// NewZotero validates the options and builds the HTTP client
func NewZotero(opts ZoteroOptions) (*Zotero, error) {
	if strings.TrimSpace(opts.LibraryID) == "" || strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("zotero: library_id and api_key are required")
	}

	var prefix string
	switch strings.ToLower(opts.LibraryType) {
	case "", "user":
		prefix = "/users/" + opts.LibraryID
	case "group":
		prefix = "/groups/" + opts.LibraryID
	default:
		return nil, fmt.Errorf("zotero: unknown library_type %q (user, group)", opts.LibraryType)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.zotero.org"
	}

	client := fastshot.NewClient(base).
		Config().SetTimeout(opts.Timeout).
		Header().Add("Zotero-API-Version", "3").
		Header().Add("Zotero-API-Key", opts.APIKey).
		Build()

	return &Zotero{
		client:     client,
		prefix:     prefix,
		categories: toSet(opts.Categories),
		logger:     logging.OrDiscard(opts.Logger),
	}, nil
}

func (z *Zotero) Name() string { return "zotero" }

func (z *Zotero) Accepts(category string) bool { return z.categories[category] }

type zoteroCreator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type zoteroTag struct {
	Tag string `json:"tag"`
}

type zoteroItem struct {
	ItemType     string          `json:"itemType"`
	Title        string          `json:"title"`
	Creators     []zoteroCreator `json:"creators,omitempty"`
	Date         string          `json:"date,omitempty"`
	AbstractNote string          `json:"abstractNote,omitempty"`
	Tags         []zoteroTag     `json:"tags"`
	Collections  []string        `json:"collections,omitempty"`
	Extra        string          `json:"extra,omitempty"`
}

type zoteroAttachment struct {
	ItemType    string      `json:"itemType"`
	ParentItem  string      `json:"parentItem"`
	LinkMode    string      `json:"linkMode"`
	Title       string      `json:"title"`
	Path        string      `json:"path"`
	ContentType string      `json:"contentType,omitempty"`
	Tags        []zoteroTag `json:"tags"`
}

// writeResponse is the body of a multi-object write
type writeResponse struct {
	Successful map[string]struct {
		Key string `json:"key"`
	} `json:"successful"`
	Failed map[string]struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"failed"`
}

// Publish creates the parent item, then links the organized file to it.
// A failed attachment is logged; the parent key is still returned.
func (z *Zotero) Publish(ctx context.Context, req ports.PublishRequest) (string, error) {
	key, err := z.create(ctx, buildItem(req))
	if err != nil {
		return "", err
	}

	attachment := zoteroAttachment{
		ItemType:    "attachment",
		ParentItem:  key,
		LinkMode:    "linked_file",
		Title:       req.Record.Name,
		Path:        req.Path,
		ContentType: mime.TypeByExtension(filepath.Ext(req.Path)),
		Tags:        []zoteroTag{},
	}
	if _, err := z.create(ctx, attachment); err != nil {
		z.logger.Warn("zotero attachment failed", logging.Path(req.Path), logging.String("item", key), logging.Error(err))
	}

	return key, nil
}

func (z *Zotero) create(ctx context.Context, item any) (string, error) {
	resp, err := z.client.
		POST(z.prefix+"/items").
		Context().Set(ctx).
		Header().Add("Content-Type", "application/json").
		Body().AsJSON([]any{item}).
		Send()
	if err != nil {
		return "", fmt.Errorf("zotero: failed to send request: %w", err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, _ := resp.Body().AsString()
		return "", fmt.Errorf("zotero: %s", strings.TrimSpace(msg))
	}

	var wr writeResponse
	if err := resp.Body().AsJSON(&wr); err != nil {
		return "", fmt.Errorf("zotero: failed to parse response: %w", err)
	}
	if ok, found := wr.Successful["0"]; found && ok.Key != "" {
		return ok.Key, nil
	}
	if f, found := wr.Failed["0"]; found {
		return "", fmt.Errorf("zotero: item rejected (%d): %s", f.Code, f.Message)
	}
	return "", errors.New("zotero: response carried no item key")
}

// Check verifies the API key against /keys/current
func (z *Zotero) Check(ctx context.Context) error {
	resp, err := z.client.
		GET("/keys/current").
		Context().Set(ctx).
		Send()
	if err != nil {
		return fmt.Errorf("zotero: failed to send request: %w", err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, _ := resp.Body().AsString()
		return fmt.Errorf("zotero: key rejected: %s", strings.TrimSpace(msg))
	}
	return nil
}

func buildItem(req ports.PublishRequest) zoteroItem {
	meta, cls := req.Metadata, req.Classification

	title := meta.Title
	if !meta.HasTitle() {
		title = strings.TrimSuffix(req.Record.Name, filepath.Ext(req.Record.Name))
	}

	item := zoteroItem{
		ItemType:     "document",
		Title:        title,
		AbstractNote: meta.Subject,
		Tags:         []zoteroTag{{Tag: "auto_imported"}, {Tag: "research_workflow"}},
	}

	for _, a := range meta.Authors {
		item.Creators = append(item.Creators, creatorFor(a))
	}
	if meta.HasYear() {
		item.Date = fmt.Sprint(meta.Year)
	}

	if !cls.IsGeneral() {
		item.Tags = append(item.Tags, zoteroTag{Tag: "course:" + cls.Course})
	}
	if cls.Confidence != "" {
		item.Tags = append(item.Tags, zoteroTag{Tag: "confidence:" + string(cls.Confidence)})
	}
	for _, kw := range cls.MatchedKeywords {
		item.Tags = append(item.Tags, zoteroTag{Tag: "keyword:" + kw})
	}
	if cls.CollectionKey != "" {
		item.Collections = []string{cls.CollectionKey}
	}

	if d, ok := meta.Details.(domain.BibTeXDetails); ok && d.DOI != "" {
		item.Extra = "DOI: " + d.DOI
	}

	return item
}

// creatorFor splits "Doe, Jane" or "Jane Doe"; single names stay whole
func creatorFor(author string) zoteroCreator {
	author = strings.TrimSpace(author)
	if last, first, ok := strings.Cut(author, ","); ok {
		return zoteroCreator{CreatorType: "author", FirstName: strings.TrimSpace(first), LastName: strings.TrimSpace(last)}
	}
	fields := strings.Fields(author)
	if len(fields) < 2 {
		return zoteroCreator{CreatorType: "author", Name: author}
	}
	return zoteroCreator{
		CreatorType: "author",
		FirstName:   strings.Join(fields[:len(fields)-1], " "),
		LastName:    fields[len(fields)-1],
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}
