package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nijaru/yt-search/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const MarkdownHeader = "# Search Results Summary\n\n"

const DefaultMarkdownFile = "yt_search_results.md"

// Text writes one numbered entry per video, starting at 1.
func Text(w io.Writer, videos []models.Video) error {
	for i, v := range videos {
		if _, err := fmt.Fprintf(w, "%d. %s", i+1, v); err != nil {
			return errors.Wrap(err, "error writing text report")
		}
	}
	return nil
}

// Markdown writes a markdown summary with thumbnails, linked titles and
// channel lines, each video followed by a separator.
func Markdown(w io.Writer, videos []models.Video) error {
	parts := []string{MarkdownHeader}
	for _, v := range videos {
		parts = append(parts,
			fmt.Sprintf("![thumbnail preview](%s)\n", v.ThumbnailURL),
			fmt.Sprintf("[[%s] %s](%s) (%s) - %s  ", v.ID, v.Title, v.URL, v.Duration, v.ViewCount),
			fmt.Sprintf("![channel thumbnail preview](%s) %s - uploaded %s\n\n- - -\n", v.ChannelThumbnailURL, v.Channel, v.UploadedOn),
		)
	}

	if _, err := io.WriteString(w, strings.Join(parts, "\n")); err != nil {
		return errors.Wrap(err, "error writing markdown report")
	}
	return nil
}

func JSON(w io.Writer, videos []models.Video) error {
	if videos == nil {
		videos = []models.Video{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(videos), "error encoding JSON report")
}

// WriteMarkdownFile renders videos to path, replacing any existing file.
func WriteMarkdownFile(path string, videos []models.Video) error {
	if path == "" {
		path = DefaultMarkdownFile
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "error creating markdown file %s", path)
	}

	if err := Markdown(f, videos); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "error closing markdown file %s", path)
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"videos": len(videos),
	}).Info("Markdown report written")
	return nil
}

// Format names an output format accepted by Write.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Errorf("unknown output format %q", s)
	}
}

func Write(w io.Writer, format Format, videos []models.Video) error {
	switch format {
	case FormatMarkdown:
		return Markdown(w, videos)
	case FormatJSON:
		return JSON(w, videos)
	default:
		return Text(w, videos)
	}
}

// ContentType is the HTTP content type for format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}
