package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"sciencebindu-backend/internal/models"
)

// Caption languages in order of preference.
var transcriptLanguages = []string{"bn", "en", "en-US", "en-GB", "ar"}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var errEmptyCaptions = errors.New("captions contain no text")

// YouTubeService reads video metadata and captions straight from YouTube.
type YouTubeService struct {
	http      *http.Client
	captions  *ytapi.YouTubeTranscriptApi
	videos    *yt.Client
	userAgent string
}

func NewYouTubeService() *YouTubeService {
	client := &http.Client{Timeout: 30 * time.Second}
	return &YouTubeService{
		http:      client,
		captions:  ytapi.NewYouTubeTranscriptApi(),
		videos:    &yt.Client{HTTPClient: client},
		userAgent: browserUserAgent,
	}
}

func (s *YouTubeService) Details(ctx context.Context, videoID string) (*models.VideoDetails, error) {
	v, err := s.videos.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("youtube metadata for %s: %w", videoID, err)
	}

	details := &models.VideoDetails{
		ID:          v.ID,
		Title:       v.Title,
		Channel:     v.Author,
		Description: v.Description,
		DurationSec: int(v.Duration.Seconds()),
		Thumbnail:   "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg",
	}
	var widest uint
	for _, th := range v.Thumbnails {
		if th.Width > widest {
			widest = th.Width
			details.Thumbnail = th.URL
		}
	}
	return details, nil
}

// Transcript returns the video's captions as one line of text. It tries the
// preferred languages, then any language, then the watch page's timedtext
// track, and reports every failure when all three miss.
func (s *YouTubeService) Transcript(videoID string) (string, error) {
	attempts := []struct {
		name  string
		fetch func(string) (string, error)
	}{
		{"preferred languages", func(id string) (string, error) { return s.fromTranscriptAPI(id, transcriptLanguages) }},
		{"any language", func(id string) (string, error) { return s.fromTranscriptAPI(id, nil) }},
		{"timedtext", s.fromWatchPage},
	}

	var errs []error
	for _, a := range attempts {
		text, err := a.fetch(videoID)
		if err == nil {
			return text, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
	}
	return "", fmt.Errorf("no subtitles for %s: %w", videoID, errors.Join(errs...))
}

func (s *YouTubeService) fromTranscriptAPI(videoID string, languages []string) (string, error) {
	t, err := s.captions.GetTranscript(videoID, languages)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		parts = append(parts, e.Text)
	}
	return joinCaptionText(parts)
}

func (s *YouTubeService) fromWatchPage(videoID string) (string, error) {
	page, err := s.get("https://www.youtube.com/watch?v="+videoID, true)
	if err != nil {
		return "", err
	}
	log.Printf("timedtext fallback: watch page for %s is %d bytes", videoID, len(page))

	trackURL, err := extractCaptionURL(string(page))
	if err != nil {
		return "", err
	}
	track, err := s.get(trackURL, false)
	if err != nil {
		return "", err
	}
	return parseCaptionsXML(track)
}

func (s *YouTubeService) get(url string, asBrowser bool) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if asBrowser {
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept-Language", "bn-BD,bn;q=0.9,en;q=0.8")
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var (
	captionTracksRe  = regexp.MustCompile(`"captionTracks"\s*:\s*\[(.*?)\],\s*"`)
	captionBaseURLRe = regexp.MustCompile(`"baseUrl"\s*:\s*"(.*?)"`)
	jsonEscapes      = strings.NewReplacer(`\u0026`, "&", `\/`, "/")
)

// extractCaptionURL pulls the first caption track URL out of a watch page's
// embedded player response.
func extractCaptionURL(page string) (string, error) {
	tracks := captionTracksRe.FindStringSubmatch(page)
	if tracks == nil {
		return "", errors.New("watch page lists no caption tracks")
	}
	base := captionBaseURLRe.FindStringSubmatch(tracks[1])
	if base == nil {
		return "", errors.New("caption track has no baseUrl")
	}
	return jsonEscapes.Replace(base[1]), nil
}

func parseCaptionsXML(data []byte) (string, error) {
	var doc struct {
		Lines []string `xml:"text"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode timedtext: %w", err)
	}
	for i, line := range doc.Lines {
		doc.Lines[i] = html.UnescapeString(line)
	}
	return joinCaptionText(doc.Lines)
}

func joinCaptionText(parts []string) (string, error) {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "", errEmptyCaptions
	}
	return strings.Join(kept, " "), nil
}
