package models

import "fmt"

const watchURLPrefix = "https://www.youtube.com/watch?v="

// UnknownUpload is stored in UploadedOn when the result carries no upload
// time, which happens for auto-generated "Topic" channels.
const UnknownUpload = "unknown"

// Video holds the display data for one search result. Everything except ID
// is free text as served by the site.
type Video struct {
	ID                  string `json:"id"`
	URL                 string `json:"url"`
	ThumbnailURL        string `json:"thumbnail_url"`
	Title               string `json:"title"`
	Duration            string `json:"duration"`
	Channel             string `json:"channel"`
	ChannelURL          string `json:"channel_url"`
	ChannelThumbnailURL string `json:"channel_thumbnail_url"`
	UploadedOn          string `json:"uploaded_on"`
	ViewCount           string `json:"view_count"`
}

// NewVideo builds a Video, deriving its watch URL from id.
func NewVideo(id, thumbnailURL, title, duration, channel, channelURL, channelThumbnailURL, uploadedOn, viewCount string) Video {
	if uploadedOn == "" {
		uploadedOn = UnknownUpload
	}
	return Video{
		ID:                  id,
		URL:                 WatchURL(id),
		ThumbnailURL:        thumbnailURL,
		Title:               title,
		Duration:            duration,
		Channel:             channel,
		ChannelURL:          channelURL,
		ChannelThumbnailURL: channelThumbnailURL,
		UploadedOn:          uploadedOn,
		ViewCount:           viewCount,
	}
}

func WatchURL(id string) string {
	return watchURLPrefix + id
}

func (v Video) String() string {
	return fmt.Sprintf("[%s] %s (%s) - %s\nby: %s - uploaded %s - %s\n",
		v.ID, v.Title, v.Duration, v.ViewCount, v.Channel, v.UploadedOn, v.URL)
}
