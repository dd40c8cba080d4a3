package transfer

import (
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/maheshrc27/feedqueue-api/internal/models"
)

type PubResultDTO struct {
	URL     *string `json:"url"`
	PubDate string  `json:"pubDate"`
}

// NewDeployResponses keeps the publisher's channel keys as-is.
func NewDeployResponses(results map[string]*models.PubResult, c *codec.Codec) map[string]*PubResultDTO {
	if results == nil {
		return nil
	}
	out := make(map[string]*PubResultDTO, len(results))
	for channel, r := range results {
		if r == nil {
			out[channel] = nil
			continue
		}
		dto := &PubResultDTO{PubDate: c.FormatTime(r.PubDate)}
		if r.URL != "" {
			url := r.URL
			dto.URL = &url
		}
		out[channel] = dto
	}
	return out
}

type DeleteResponse struct {
	Message         string                   `json:"message"`
	DeployResponses map[string]*PubResultDTO `json:"deployResponses,omitempty"`
}
