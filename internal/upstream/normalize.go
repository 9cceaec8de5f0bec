package upstream

import (
	"strings"
	"time"

	"github.com/nsmith5/marksync/internal/domain"
)

// recordPage is one page of the upstream query response.
type recordPage struct {
	Results    []storeRecord `json:"results"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor"`
}

// storeRecord is the raw upstream record shape. Property names are free-form
// and schema-dependent; the alias table resolves them.
type storeRecord struct {
	ID             string                   `json:"id"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Properties     map[string]propertyValue `json:"properties"`
}

// propertyValue is the tagged-union property encoding of the upstream store.
// Only the variants this system reads are modeled.
type propertyValue struct {
	Type        string        `json:"type"`
	Title       []richText    `json:"title"`
	RichText    []richText    `json:"rich_text"`
	Select      *selectOption `json:"select"`
	MultiSelect []selectOption `json:"multi_select"`
	URL         string        `json:"url"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type selectOption struct {
	Name string `json:"name"`
}

// normalize converts one raw upstream record into the canonical bookmark
// shape, resolving each logical field through the alias table and applying
// defaults for absent values.
func normalize(rec storeRecord, aliases AliasTable) domain.BookmarkRecord {
	title := textUnder(rec.Properties, aliases.Title)
	if title == "" {
		title = domain.DefaultTitle
	}

	rawURL := textUnder(rec.Properties, aliases.URL)
	if rawURL == "" {
		rawURL = domain.DefaultURL
	}

	category := textUnder(rec.Properties, aliases.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	return domain.BookmarkRecord{
		ID:             rec.ID,
		Title:          title,
		URL:            rawURL,
		Description:    textUnder(rec.Properties, aliases.Description),
		Category:       category,
		Tags:           tagsUnder(rec.Properties, aliases.Tags),
		FaviconURL:     domain.FaviconFor(rawURL),
		CreatedTime:    rec.CreatedTime,
		LastEditedTime: rec.LastEditedTime,
	}
}

// textUnder resolves the first alias present in props and extracts its text.
func textUnder(props map[string]propertyValue, aliases []string) string {
	for _, name := range aliases {
		if pv, ok := props[name]; ok {
			if text := textOf(pv); text != "" {
				return text
			}
		}
	}
	return ""
}

// tagsUnder resolves the first alias present in props and extracts its tag
// names, preserving upstream order and dropping duplicates.
func tagsUnder(props map[string]propertyValue, aliases []string) []string {
	for _, name := range aliases {
		pv, ok := props[name]
		if !ok || len(pv.MultiSelect) == 0 {
			continue
		}
		seen := make(map[string]bool, len(pv.MultiSelect))
		tags := make([]string, 0, len(pv.MultiSelect))
		for _, opt := range pv.MultiSelect {
			if opt.Name == "" || seen[opt.Name] {
				continue
			}
			tags = append(tags, opt.Name)
			seen[opt.Name] = true
		}
		return tags
	}
	return nil
}

// textOf flattens one property value into plain text.
func textOf(pv propertyValue) string {
	switch pv.Type {
	case "title":
		return joinPlainText(pv.Title)
	case "rich_text":
		return joinPlainText(pv.RichText)
	case "url":
		return strings.TrimSpace(pv.URL)
	case "select":
		if pv.Select != nil {
			return pv.Select.Name
		}
		return ""
	default:
		// Tolerate records that omit the type tag.
		if len(pv.Title) > 0 {
			return joinPlainText(pv.Title)
		}
		if len(pv.RichText) > 0 {
			return joinPlainText(pv.RichText)
		}
		if pv.URL != "" {
			return strings.TrimSpace(pv.URL)
		}
		if pv.Select != nil {
			return pv.Select.Name
		}
		return ""
	}
}

func joinPlainText(parts []richText) string {
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.PlainText)
	}
	return strings.TrimSpace(sb.String())
}
