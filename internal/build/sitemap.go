package build

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/site"
)

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// writeSitemap emits sitemap.xml with one entry per canonical URL.
func (p *Pipeline) writeSitemap(idx *site.Index) error {
	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, u := range idx.URLs() {
		entry := sitemapURL{Loc: p.baseURL + u}
		if a := idx.ByURL(u); a != nil && !a.Date.IsZero() {
			entry.LastMod = a.Date.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, entry)
	}

	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sitemap: %w", err)
	}
	return p.output.Write("sitemap.xml", append([]byte(xml.Header), data...))
}

type indexEntry struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Tags        []string  `json:"tags,omitempty"`
	Description string    `json:"description,omitempty"`
}

// writeIndexJSON emits index.json, the machine-readable article listing
// consumed by the site theme and the deployment step.
func (p *Pipeline) writeIndexJSON(idx *site.Index) error {
	entries := make([]indexEntry, 0, idx.Len())
	for _, u := range idx.URLs() {
		a := idx.ByURL(u)
		entries = append(entries, indexEntry{
			URL:         u,
			Title:       a.Title,
			Date:        a.Date,
			Tags:        a.Tags,
			Description: a.Description,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return p.output.Write("index.json", append(data, '\n'))
}
