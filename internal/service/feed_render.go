package service

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type channelFile struct {
	name        string
	contentType string
}

var channelFiles = map[string]channelFile{
	models.ChannelRSS20:  {name: "rss.xml", contentType: "application/rss+xml; charset=utf-8"},
	models.ChannelAtom10: {name: "atom.xml", contentType: "application/atom+xml; charset=utf-8"},
	models.ChannelJSON:   {name: "feed.json", contentType: "application/feed+json; charset=utf-8"},
}

// Channels in the order they are deployed.
var publishChannels = []string{models.ChannelRSS20, models.ChannelAtom10, models.ChannelJSON}

const queueImageFile = "image"

// feedSource is everything a renderer needs for one queue.
type feedSource struct {
	queue    *models.Queue
	items    []*models.StagingPost
	builtAt  time.Time
	homeURL  string
	urls     map[string]string
	imageURL string
}

func renderFeed(channel string, src *feedSource) ([]byte, error) {
	switch channel {
	case models.ChannelRSS20:
		return renderRSS(src)
	case models.ChannelAtom10:
		return renderAtom(src)
	case models.ChannelJSON:
		return renderJSONFeed(src)
	}
	return nil, fmt.Errorf("unknown channel %q", channel)
}

type rssDocument struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	Description    string       `xml:"description"`
	AtomLink       rssAtomLink  `xml:"atom:link"`
	Language       string       `xml:"language,omitempty"`
	Copyright      string       `xml:"copyright,omitempty"`
	ManagingEditor string       `xml:"managingEditor,omitempty"`
	WebMaster      string       `xml:"webMaster,omitempty"`
	PubDate        string       `xml:"pubDate,omitempty"`
	LastBuildDate  string       `xml:"lastBuildDate"`
	Categories     []string     `xml:"category,omitempty"`
	Generator      string       `xml:"generator,omitempty"`
	Docs           string       `xml:"docs,omitempty"`
	Ttl            int          `xml:"ttl,omitempty"`
	Rating         string       `xml:"rating,omitempty"`
	SkipHours      *rssSkip     `xml:"skipHours,omitempty"`
	SkipDays       *rssSkipDays `xml:"skipDays,omitempty"`
	Image          *rssImage    `xml:"image,omitempty"`
	ITunesImage    *itunesImage `xml:"itunes:image,omitempty"`
	Items          []rssItem    `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssSkip struct {
	Hours []string `xml:"hour"`
}

type rssSkipDays struct {
	Days []string `xml:"day"`
}

type rssImage struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type itunesImage struct {
	Href string `xml:"href,attr"`
}

type rssItem struct {
	Title             string        `xml:"title,omitempty"`
	Link              string        `xml:"link,omitempty"`
	Description       string        `xml:"description,omitempty"`
	Author            string        `xml:"author,omitempty"`
	Categories        []string      `xml:"category,omitempty"`
	Comments          string        `xml:"comments,omitempty"`
	Enclosure         *rssEnclosure `xml:"enclosure,omitempty"`
	GUID              rssGUID       `xml:"guid"`
	PubDate           string        `xml:"pubDate,omitempty"`
	ITunesAuthor      string        `xml:"itunes:author,omitempty"`
	ITunesSubtitle    string        `xml:"itunes:subtitle,omitempty"`
	ITunesSummary     string        `xml:"itunes:summary,omitempty"`
	ITunesImage       *itunesImage  `xml:"itunes:image,omitempty"`
	ITunesDuration    string        `xml:"itunes:duration,omitempty"`
	ITunesExplicit    string        `xml:"itunes:explicit,omitempty"`
	ITunesKeywords    string        `xml:"itunes:keywords,omitempty"`
	ITunesEpisodeType string        `xml:"itunes:episodeType,omitempty"`
	ITunesEpisode     int           `xml:"itunes:episode,omitempty"`
	ITunesSeason      int           `xml:"itunes:season,omitempty"`
	ITunesOrder       int           `xml:"itunes:order,omitempty"`
	ITunesCaptioned   string        `xml:"itunes:isClosedCaptioned,omitempty"`
	ITunesBlock       string        `xml:"itunes:block,omitempty"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

func renderRSS(src *feedSource) ([]byte, error) {
	q := src.queue
	ch := rssChannel{
		Title:         deref(q.Title, q.Ident),
		Link:          src.homeURL,
		Description:   deref(q.Description, deref(q.Title, q.Ident)),
		AtomLink:      rssAtomLink{Href: src.urls[models.ChannelRSS20], Rel: "self", Type: "application/rss+xml"},
		Language:      deref(q.Language, ""),
		Copyright:     deref(q.Copyright, ""),
		LastBuildDate: src.builtAt.Format(time.RFC1123Z),
		Generator:     deref(q.Generator, ""),
	}
	if len(src.items) > 0 {
		ch.PubDate = publishedAt(src.items[0], src.builtAt).Format(time.RFC1123Z)
	}
	if q.ExportConfig != nil && q.ExportConfig.RSSConfig != nil {
		rc := q.ExportConfig.RSSConfig
		ch.ManagingEditor = rc.ManagingEditor
		ch.WebMaster = rc.WebMaster
		ch.Categories = splitList(rc.Categories)
		ch.Docs = rc.Docs
		ch.Rating = rc.Rating
		if rc.Ttl != nil {
			ch.Ttl = *rc.Ttl
		}
		if hours := splitList(rc.SkipHours); len(hours) > 0 {
			ch.SkipHours = &rssSkip{Hours: hours}
		}
		if days := splitList(rc.SkipDays); len(days) > 0 {
			ch.SkipDays = &rssSkipDays{Days: days}
		}
	}
	if src.imageURL != "" {
		ch.Image = &rssImage{URL: src.imageURL, Title: ch.Title, Link: ch.Link}
		ch.ITunesImage = &itunesImage{Href: src.imageURL}
	}

	for _, p := range src.items {
		item := rssItem{
			Title:       contentValue(p.PostTitle),
			Link:        deref(p.PostUrl, ""),
			Description: contentValue(p.PostDesc),
			Categories:  p.PostCategories,
			Comments:    deref(p.PostComment, ""),
			GUID:        rssGUID{Value: itemID(src.queue, p)},
			PubDate:     publishedAt(p, src.builtAt).Format(time.RFC1123Z),
		}
		if len(p.Authors) > 0 && p.Authors[0].Email != "" {
			item.Author = strings.TrimSpace(fmt.Sprintf("%s (%s)", p.Authors[0].Email, p.Authors[0].Name))
		}
		if len(p.Enclosures) > 0 {
			e := p.Enclosures[0]
			item.Enclosure = &rssEnclosure{URL: e.Url, Type: e.Type, Length: e.Length}
		}
		if it := p.PostITunes; it != nil {
			item.ITunesAuthor = it.Author
			item.ITunesSubtitle = it.Subtitle
			item.ITunesSummary = it.Summary
			if it.ImageUri != "" {
				item.ITunesImage = &itunesImage{Href: it.ImageUri}
			}
			if it.Duration > 0 {
				item.ITunesDuration = strconv.FormatInt(it.Duration, 10)
			}
			item.ITunesExplicit = strconv.FormatBool(isTrue(it.Explicit))
			item.ITunesKeywords = strings.Join(it.Keywords, ",")
			item.ITunesEpisodeType = it.EpisodeType
			item.ITunesEpisode = it.Episode
			item.ITunesSeason = it.Season
			item.ITunesOrder = it.Order
			item.ITunesCaptioned = yesOrEmpty(it.IsCloseCaptioned)
			item.ITunesBlock = yesOrEmpty(it.Block)
		}
		ch.Items = append(ch.Items, item)
	}

	doc := rssDocument{
		Version:  "2.0",
		ITunesNS: "http://www.itunes.com/dtds/podcast-1.0.dtd",
		AtomNS:   "http://www.w3.org/2005/Atom",
		Channel:  ch,
	}
	return marshalXML(doc)
}

type atomFeed struct {
	XMLName      xml.Name       `xml:"feed"`
	Xmlns        string         `xml:"xmlns,attr"`
	ID           string         `xml:"id"`
	Title        string         `xml:"title"`
	Subtitle     string         `xml:"subtitle,omitempty"`
	Updated      string         `xml:"updated"`
	Generator    string         `xml:"generator,omitempty"`
	Rights       string         `xml:"rights,omitempty"`
	Icon         string         `xml:"icon,omitempty"`
	Links        []atomLink     `xml:"link"`
	Authors      []atomPerson   `xml:"author"`
	Contributors []atomPerson   `xml:"contributor"`
	Categories   []atomCategory `xml:"category"`
	Entries      []atomEntry    `xml:"entry"`
}

type atomEntry struct {
	ID           string         `xml:"id"`
	Title        atomText       `xml:"title"`
	Updated      string         `xml:"updated"`
	Published    string         `xml:"published,omitempty"`
	Summary      *atomText      `xml:"summary,omitempty"`
	Content      *atomText      `xml:"content,omitempty"`
	Rights       string         `xml:"rights,omitempty"`
	Links        []atomLink     `xml:"link"`
	Authors      []atomPerson   `xml:"author"`
	Contributors []atomPerson   `xml:"contributor"`
	Categories   []atomCategory `xml:"category"`
}

type atomText struct {
	Type string `xml:"type,attr,omitempty"`
	Body string `xml:",chardata"`
}

type atomLink struct {
	Href     string `xml:"href,attr"`
	Rel      string `xml:"rel,attr,omitempty"`
	Type     string `xml:"type,attr,omitempty"`
	Hreflang string `xml:"hreflang,attr,omitempty"`
	Title    string `xml:"title,attr,omitempty"`
	Length   int64  `xml:"length,attr,omitempty"`
}

type atomPerson struct {
	Name  string `xml:"name"`
	URI   string `xml:"uri,omitempty"`
	Email string `xml:"email,omitempty"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func renderAtom(src *feedSource) ([]byte, error) {
	q := src.queue
	feed := atomFeed{
		Xmlns:     "http://www.w3.org/2005/Atom",
		ID:        "urn:uuid:" + q.TransportIdent,
		Title:     deref(q.Title, q.Ident),
		Subtitle:  deref(q.Description, ""),
		Updated:   src.builtAt.Format(time.RFC3339),
		Generator: deref(q.Generator, ""),
		Rights:    deref(q.Copyright, ""),
		Icon:      src.imageURL,
		Links: []atomLink{
			{Href: src.urls[models.ChannelAtom10], Rel: "self", Type: "application/atom+xml"},
			{Href: src.homeURL, Rel: "alternate"},
		},
	}
	if q.ExportConfig != nil && q.ExportConfig.AtomConfig != nil {
		ac := q.ExportConfig.AtomConfig
		if ac.AuthorName != "" {
			feed.Authors = []atomPerson{{Name: ac.AuthorName, URI: ac.AuthorUri, Email: ac.AuthorEmail}}
		}
		if ac.ContributorName != "" {
			feed.Contributors = []atomPerson{{Name: ac.ContributorName, URI: ac.ContributorUri, Email: ac.ContributorEmail}}
		}
		for _, c := range splitList(ac.Category) {
			feed.Categories = append(feed.Categories, atomCategory{Term: c})
		}
	}
	if len(feed.Authors) == 0 {
		// atom requires an author on the feed or on every entry
		feed.Authors = []atomPerson{{Name: q.Username}}
	}

	for _, p := range src.items {
		published := publishedAt(p, src.builtAt)
		updated := published
		if p.LastUpdatedTimestamp != nil && p.LastUpdatedTimestamp.After(updated) {
			updated = *p.LastUpdatedTimestamp
		}
		entry := atomEntry{
			ID:        "urn:feedqueue:" + itemID(q, p),
			Title:     atomContent(p.PostTitle),
			Updated:   updated.Format(time.RFC3339),
			Published: published.Format(time.RFC3339),
			Rights:    deref(p.PostRights, ""),
		}
		if p.PostDesc != nil {
			summary := atomContent(p.PostDesc)
			entry.Summary = &summary
		}
		if len(p.PostContents) > 0 && p.PostContents[0] != nil {
			content := atomContent(p.PostContents[0])
			entry.Content = &content
		}
		if p.PostUrl != nil {
			entry.Links = append(entry.Links, atomLink{Href: *p.PostUrl, Rel: "alternate"})
		}
		for _, u := range p.PostUrls {
			entry.Links = append(entry.Links, atomLink{Href: u.Href, Rel: u.Rel, Type: u.Type, Hreflang: u.Hreflang, Title: u.Title})
		}
		for _, e := range p.Enclosures {
			entry.Links = append(entry.Links, atomLink{Href: e.Url, Rel: "enclosure", Type: e.Type, Length: e.Length})
		}
		for _, a := range p.Authors {
			entry.Authors = append(entry.Authors, atomPerson{Name: a.Name, URI: a.Uri, Email: a.Email})
		}
		for _, c := range p.Contributors {
			entry.Contributors = append(entry.Contributors, atomPerson{Name: c.Name, URI: c.Uri, Email: c.Email})
		}
		for _, c := range p.PostCategories {
			entry.Categories = append(entry.Categories, atomCategory{Term: c})
		}
		feed.Entries = append(feed.Entries, entry)
	}
	return marshalXML(feed)
}

type jsonFeed struct {
	Version     string       `json:"version"`
	Title       string       `json:"title"`
	HomePageURL string       `json:"home_page_url,omitempty"`
	FeedURL     string       `json:"feed_url,omitempty"`
	Description string       `json:"description,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Language    string       `json:"language,omitempty"`
	Authors     []jsonAuthor `json:"authors,omitempty"`
	Items       []jsonItem   `json:"items"`
}

type jsonAuthor struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type jsonItem struct {
	ID            string           `json:"id"`
	URL           string           `json:"url,omitempty"`
	Title         string           `json:"title,omitempty"`
	ContentHTML   string           `json:"content_html,omitempty"`
	ContentText   string           `json:"content_text,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	Image         string           `json:"image,omitempty"`
	DatePublished string           `json:"date_published,omitempty"`
	DateModified  string           `json:"date_modified,omitempty"`
	Authors       []jsonAuthor     `json:"authors,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Attachments   []jsonAttachment `json:"attachments,omitempty"`
}

type jsonAttachment struct {
	URL         string `json:"url"`
	MimeType    string `json:"mime_type"`
	SizeInBytes int64  `json:"size_in_bytes,omitempty"`
}

func renderJSONFeed(src *feedSource) ([]byte, error) {
	q := src.queue
	feed := jsonFeed{
		Version:     "https://jsonfeed.org/version/1.1",
		Title:       deref(q.Title, q.Ident),
		HomePageURL: src.homeURL,
		FeedURL:     src.urls[models.ChannelJSON],
		Description: deref(q.Description, ""),
		Icon:        src.imageURL,
		Language:    deref(q.Language, ""),
		Items:       []jsonItem{},
	}
	for _, p := range src.items {
		item := jsonItem{
			ID:            itemID(q, p),
			URL:           deref(p.PostUrl, ""),
			Title:         contentValue(p.PostTitle),
			Summary:       contentValue(p.PostDesc),
			Image:         deref(p.PostImgUrl, ""),
			DatePublished: publishedAt(p, src.builtAt).Format(time.RFC3339),
			Tags:          p.PostCategories,
		}
		if p.LastUpdatedTimestamp != nil {
			item.DateModified = p.LastUpdatedTimestamp.Format(time.RFC3339)
		}
		body := p.PostDesc
		if len(p.PostContents) > 0 && p.PostContents[0] != nil {
			body = p.PostContents[0]
		}
		if isHTML(body) {
			item.ContentHTML = body.Value
		} else {
			item.ContentText = contentValue(body)
		}
		if item.ContentHTML == "" && item.ContentText == "" {
			// one of the two is required
			item.ContentText = item.Title
		}
		for _, a := range p.Authors {
			item.Authors = append(item.Authors, jsonAuthor{Name: a.Name, URL: a.Uri})
		}
		for _, e := range p.Enclosures {
			item.Attachments = append(item.Attachments, jsonAttachment{URL: e.Url, MimeType: e.Type, SizeInBytes: e.Length})
		}
		feed.Items = append(feed.Items, item)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// publishedAt is the post's publish time, or the build time for posts going live now.
func publishedAt(p *models.StagingPost, builtAt time.Time) time.Time {
	if p.PublishTimestamp != nil {
		return *p.PublishTimestamp
	}
	return builtAt
}

func itemID(q *models.Queue, p *models.StagingPost) string {
	return fmt.Sprintf("%s:%d", q.TransportIdent, p.ID)
}

func contentValue(co *models.ContentObject) string {
	if co == nil {
		return ""
	}
	return co.Value
}

func isHTML(co *models.ContentObject) bool {
	return co != nil && strings.Contains(strings.ToLower(co.Type), "html")
}

func atomContent(co *models.ContentObject) atomText {
	if co == nil {
		return atomText{Type: "text"}
	}
	if isHTML(co) {
		return atomText{Type: "html", Body: co.Value}
	}
	return atomText{Type: "text", Body: co.Value}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func yesOrEmpty(b *bool) string {
	if isTrue(b) {
		return "Yes"
	}
	return ""
}
