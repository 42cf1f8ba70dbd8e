package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

// MediaExtractor reads container and stream info with ffprobe
type MediaExtractor struct {
	run Runner
}

func NewMediaExtractor(run Runner) *MediaExtractor {
	return &MediaExtractor{run: run}
}

type probeOutput struct {
	Format struct {
		Duration   string            `json:"duration"`
		FormatName string            `json:"format_name"`
		Tags       map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (e *MediaExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	out, err := e.run(ctx, "ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", rec.Path)
	if err != nil {
		return domain.Metadata{}, err
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return domain.Metadata{}, fmt.Errorf("ffprobe output: %w", err)
	}

	details := domain.MediaDetails{FormatName: probe.Format.FormatName}
	if secs, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		details.Duration = time.Duration(secs * float64(time.Second)).Round(time.Millisecond)
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if details.VideoCodec == "" {
				details.VideoCodec = s.CodecName
				details.Width, details.Height = s.Width, s.Height
			}
		case "audio":
			if details.AudioCodec == "" {
				details.AudioCodec = s.CodecName
			}
		}
	}

	meta := domain.NewMetadata(details)
	tags := probe.Format.Tags
	meta.Title = tag(tags, "title")
	meta.Authors = domain.SplitAuthors(firstNonEmpty(tag(tags, "artist"), tag(tags, "author")))
	meta.Year = findYear(firstNonEmpty(tag(tags, "date"), tag(tags, "creation_time")))
	meta.Subject = tag(tags, "comment")
	return meta, nil
}

// ffprobe tag keys vary in case between containers
func tag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
