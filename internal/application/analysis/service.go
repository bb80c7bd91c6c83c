package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/bryanwahyu/authentiq/internal/application"
	"github.com/bryanwahyu/authentiq/internal/domain/ai"
	domain "github.com/bryanwahyu/authentiq/internal/domain/analysis"
	"github.com/bryanwahyu/authentiq/internal/domain/analyst"
	"github.com/bryanwahyu/authentiq/internal/domain/failures"
)

// DefaultTimeout bounds one gateway call when Service.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// excerptLen caps how much raw model output ends up in logs.
const excerptLen = 200

// ErrHistoryDisabled is returned by the history use-cases when no repository is configured.
var ErrHistoryDisabled = errors.New("analysis history is not configured")

// Service implements the analysis use-cases. Repo, Failures and Media are
// optional; a nil value turns the matching side effect off.
// Service is safe for concurrent use.
type Service struct {
	Gateway  ai.Client
	Repo     analyst.Repository
	Failures failures.Repository
	Media    analyst.MediaStore
	Clock    application.Clock
	Timeout  time.Duration
	Model    string
	Log      log.Interface
}

// Report is the outcome of one analysis. ID is empty when the record was not stored.
type Report struct {
	ID     analyst.AnalysisID
	Result domain.Result
}

// upload is media kept for archival after a successful analysis.
type upload struct {
	data        []byte
	contentType string
	url         string // already remote, nothing to archive
}

// AnalyzeText classifies a passage. Text shorter than the minimum never reaches the gateway.
func (s *Service) AnalyzeText(ctx context.Context, text string) (Report, error) {
	if err := domain.ValidateText(text); err != nil {
		return Report{}, err
	}
	req := ai.Request{Media: ai.MediaText, Text: text}
	return s.run(ctx, req, upload{data: []byte(text), contentType: "text/plain; charset=utf-8"})
}

// AnalyzeImage classifies an image given as a data URI or a remote URL.
func (s *Service) AnalyzeImage(ctx context.Context, imageData string) (Report, error) {
	imageData = strings.TrimSpace(imageData)
	if err := domain.ValidateImage(imageData); err != nil {
		return Report{}, err
	}

	up := upload{url: imageData}
	if strings.HasPrefix(imageData, "data:") {
		up = upload{}
		if data, ct, err := domain.DecodeDataURI(imageData); err == nil {
			up = upload{data: data, contentType: ct}
		}
	}
	return s.run(ctx, ai.Request{Media: ai.MediaImage, ImageURL: imageData}, up)
}

// AnalyzeAudio classifies an audio clip given as base64 or an audio data URI.
func (s *Service) AnalyzeAudio(ctx context.Context, audioData, fileName string) (Report, error) {
	payload, format, err := domain.ParseAudio(audioData, fileName)
	if err != nil {
		return Report{}, err
	}
	req := ai.Request{
		Media:       ai.MediaAudio,
		AudioData:   payload,
		AudioFormat: format,
		FileName:    fileName,
	}

	var up upload
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		up = upload{data: data, contentType: "audio/" + format}
	}
	return s.run(ctx, req, up)
}

// run dispatches once (no retry), normalizes the reply and records the outcome.
func (s *Service) run(ctx context.Context, req ai.Request, up upload) (Report, error) {
	start := s.now()
	logger := s.logger().WithFields(log.Fields{
		"media": req.Media,
		"model": s.Model,
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	content, err := s.Gateway.Complete(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", domain.ErrTimeout, s.timeout())
		}
		s.logDispatchError(logger, err)
		s.recordFailure(ctx, req.Media, failures.PhaseDispatch, err, "")
		return Report{}, err
	}

	result, err := domain.Normalize(content)
	if err != nil {
		logger.WithError(err).WithField("content", excerpt(content)).Error("failed to parse AI response")
		s.recordFailure(ctx, req.Media, failures.PhaseNormalize, err, content)
		return Report{}, err
	}

	elapsed := s.now().Sub(start)
	logger.WithFields(log.Fields{
		"verdict":     result.Verdict,
		"indicators":  len(result.Indicators),
		"duration_ms": elapsed.Milliseconds(),
	}).Info("analysis complete")

	id := s.save(ctx, req, result, up, start, elapsed)
	return Report{ID: id, Result: result}, nil
}

func (s *Service) logDispatchError(logger log.Interface, err error) {
	var upstream *ai.UpstreamError
	switch {
	case errors.As(err, &upstream):
		logger.WithFields(log.Fields{
			"status": upstream.StatusCode,
			"body":   excerpt(upstream.Body),
		}).Error("AI gateway error")
	case errors.Is(err, ai.ErrRateLimited), errors.Is(err, ai.ErrCreditsExhausted):
		logger.WithError(err).Warn("AI gateway refused request")
	default:
		logger.WithError(err).Error("AI gateway call failed")
	}
}

// save persists a successful analysis. Storage problems are logged and do
// not fail the analysis; the returned ID is empty when nothing was stored.
func (s *Service) save(ctx context.Context, req ai.Request, res domain.Result, up upload, start time.Time, elapsed time.Duration) analyst.AnalysisID {
	if s.Repo == nil {
		return ""
	}
	// the caller may already be gone, the record should still land
	ctx = context.WithoutCancel(ctx)
	id := analyst.AnalysisID(uuid.New().String())

	mediaURL := up.url
	if s.Media != nil && len(up.data) > 0 {
		key := fmt.Sprintf("%s/%s.%s", req.Media, id, extension(up.contentType))
		url, err := s.Media.Put(ctx, key, up.data, up.contentType)
		if err != nil {
			s.logger().WithError(err).WithField("key", key).Warn("failed to archive media")
		} else {
			mediaURL = url
		}
	}

	rec := &analyst.Analysis{
		ID:         id,
		Media:      string(req.Media),
		Verdict:    res.Verdict,
		Confidence: res.Confidence,
		Summary:    res.Summary,
		Indicators: res.Indicators,
		MediaURL:   mediaURL,
		FileName:   req.FileName,
		Model:      s.Model,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		s.logger().WithError(err).WithField("id", id).Error("failed to save analysis")
		return ""
	}
	return id
}

func (s *Service) recordFailure(ctx context.Context, media ai.Media, phase failures.Phase, cause error, raw string) {
	if s.Failures == nil {
		return
	}
	f := &failures.Failure{
		Media:      string(media),
		Phase:      phase,
		Message:    cause.Error(),
		RawContent: raw,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Failures.Save(context.WithoutCancel(ctx), f); err != nil {
		s.logger().WithError(err).Warn("failed to record analysis failure")
	}
}

// List returns one page of stored analyses, newest first. media "" means all.
func (s *Service) List(ctx context.Context, media string, page, pageSize int) (analyst.Page, error) {
	if s.Repo == nil {
		return analyst.Page{}, ErrHistoryDisabled
	}
	if media != "" && !ai.Media(media).Valid() {
		return analyst.Page{}, fmt.Errorf("%w: unknown media %q", domain.ErrInvalidInput, media)
	}
	if page < 1 {
		page = 1
	}
	items, err := s.Repo.Paginate(ctx, media, page, pageSize)
	if err != nil {
		return analyst.Page{}, err
	}
	if items == nil {
		items = []*analyst.Analysis{}
	}
	return analyst.Page{Data: items, Page: page, PageSize: pageSize}, nil
}

// Get returns one stored analysis.
func (s *Service) Get(ctx context.Context, id analyst.AnalysisID) (*analyst.Analysis, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Get(ctx, id)
}

// RecentFailures returns the latest failed analyses, newest first.
func (s *Service) RecentFailures(ctx context.Context, media string, limit int) ([]*failures.Failure, error) {
	if s.Failures == nil {
		return nil, ErrHistoryDisabled
	}
	items, err := s.Failures.Latest(ctx, media, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*failures.Failure{}
	}
	return items, nil
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() log.Interface {
	if s.Log == nil {
		return log.Log
	}
	return s.Log
}

// extension turns "image/svg+xml; charset=x" into "svg".
func extension(contentType string) string {
	sub := contentType
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		sub = sub[i+1:]
	}
	if i := strings.IndexAny(sub, "+;"); i >= 0 {
		sub = sub[:i]
	}
	sub = strings.TrimSpace(sub)
	switch sub {
	case "":
		return "bin"
	case "jpeg":
		return "jpg"
	case "plain":
		return "txt"
	case "mpeg":
		return "mp3"
	}
	return sub
}

func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
