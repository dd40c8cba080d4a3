package service

import (
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderFixture() *feedSource {
	published := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	return &feedSource{
		queue: &models.Queue{
			Ident:          "podcast",
			Title:          strPtr("My Podcast"),
			TransportIdent: "t-9",
			Username:       "alice",
			ExportConfig: &models.ExportConfig{
				RSSConfig: &models.RSS20Config{Ttl: intPtr(30), SkipDays: "Saturday, Sunday", Categories: "audio"},
			},
		},
		items: []*models.StagingPost{{
			ID:               7,
			PostTitle:        &models.ContentObject{Type: "text", Value: "Episode 1"},
			PostDesc:         &models.ContentObject{Type: "text/html", Value: "<p>Intro</p>"},
			PostUrl:          strPtr("https://example.com/ep1"),
			PublishTimestamp: &published,
			PostITunes:       &models.PostITunes{Author: "Host", Duration: 3600, Episode: 1, Explicit: boolPtr(false)},
			Enclosures:       []*models.PostEnclosure{{Url: "https://cdn.example.com/ep1.mp3", Type: "audio/mpeg", Length: 1024}},
			PostCategories:   []string{"news"},
		}},
		builtAt: published.Add(time.Hour),
		homeURL: "https://feeds.example.com/t-9/",
		urls: map[string]string{
			models.ChannelRSS20:  "https://feeds.example.com/t-9/rss.xml",
			models.ChannelAtom10: "https://feeds.example.com/t-9/atom.xml",
			models.ChannelJSON:   "https://feeds.example.com/t-9/feed.json",
		},
	}
}

func TestRenderRSS(t *testing.T) {
	body, err := renderFeed(models.ChannelRSS20, renderFixture())
	require.NoError(t, err)
	doc := string(body)

	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.Contains(t, doc, `xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"`)
	assert.Contains(t, doc, "<title>My Podcast</title>")
	assert.Contains(t, doc, "<ttl>30</ttl>")
	assert.Contains(t, doc, "<day>Sunday</day>")
	assert.Contains(t, doc, `<enclosure url="https://cdn.example.com/ep1.mp3" type="audio/mpeg" length="1024"></enclosure>`)
	assert.Contains(t, doc, "<itunes:duration>3600</itunes:duration>")
	assert.Contains(t, doc, "<itunes:explicit>false</itunes:explicit>")
	assert.Contains(t, doc, `<guid isPermaLink="false">t-9:7</guid>`)
	assert.Contains(t, doc, "<pubDate>Mon, 04 Mar 2024 05:06:07 +0000</pubDate>")
}

func TestRenderAtomUsesHTMLContentType(t *testing.T) {
	body, err := renderFeed(models.ChannelAtom10, renderFixture())
	require.NoError(t, err)
	doc := string(body)

	assert.Contains(t, doc, `<feed xmlns="http://www.w3.org/2005/Atom">`)
	assert.Contains(t, doc, "<id>urn:uuid:t-9</id>")
	assert.Contains(t, doc, `<summary type="html">&lt;p&gt;Intro&lt;/p&gt;</summary>`)
	assert.Contains(t, doc, `rel="enclosure"`)
	assert.Contains(t, doc, "<name>alice</name>")
}

func TestRenderJSONFeed(t *testing.T) {
	body, err := renderFeed(models.ChannelJSON, renderFixture())
	require.NoError(t, err)
	doc := string(body)

	assert.Contains(t, doc, `"content_html": "<p>Intro</p>"`)
	assert.Contains(t, doc, `"date_published": "2024-03-04T05:06:07Z"`)
	assert.Contains(t, doc, `"mime_type": "audio/mpeg"`)
}

func TestRenderUnknownChannel(t *testing.T) {
	_, err := renderFeed("RSS_10", renderFixture())
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
