package models

import "time"

// Feed channels produced by a deploy.
const (
	ChannelRSS20  = "RSS_20"
	ChannelAtom10 = "ATOM_10"
	ChannelJSON   = "JSON"
)

type PubResult struct {
	Channel string    `json:"channel"`
	URL     string    `json:"url"`
	PubDate time.Time `json:"pub_date"`
}
