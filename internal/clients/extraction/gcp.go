package extraction

import (
	"context"
	"fmt"
	"sort"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/storage"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/domain"
	"github.com/docsight/docsight-backend/internal/platform/envutil"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

const (
	videoHandlePrefix = "vi:"
	docHandlePrefix   = "da:"
)

type gcpConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	OutputBucket     string
}

type service struct {
	log *logger.Logger
	cfg gcpConfig

	docClient   *documentai.DocumentProcessorClient
	videoClient *videointelligence.Client
	storage     *storage.Client
}

// NewService builds the GCP-backed extraction client. Document files go
// through a Document AI batch operation; video and audio files go through
// Video Intelligence shot detection.
func NewService(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "extraction")

	cfg := gcpConfig{
		ProjectID:        envutil.GetEnv("DOCUMENTAI_PROJECT_ID", "", slog),
		Location:         envutil.GetEnv("DOCUMENTAI_LOCATION", "us", slog),
		ProcessorID:      envutil.GetEnv("DOCUMENTAI_PROCESSOR_ID", "", slog),
		ProcessorVersion: envutil.GetEnv("DOCUMENTAI_PROCESSOR_VERSION", "", slog),
		OutputBucket:     envutil.GetEnv("DOCS_GCS_BUCKET_NAME", "", slog),
	}

	ctx := context.Background()
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)

	// Document AI needs a regional endpoint; the other clients do not.
	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, gcp.ClientOptionsFromEnv()...)
	dc, err := documentai.NewDocumentProcessorClient(ctx, docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}

	vc, err := videointelligence.NewClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		_ = dc.Close()
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}

	st, err := storage.NewClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		_ = dc.Close()
		_ = vc.Close()
		return nil, fmt.Errorf("storage client: %w", err)
	}

	slog.Info("extraction clients initialized", "endpoint", endpoint)

	return &service{
		log:         slog,
		cfg:         cfg,
		docClient:   dc,
		videoClient: vc,
		storage:     st,
	}, nil
}

func (s *service) Close() error {
	if s == nil {
		return nil
	}
	if s.docClient != nil {
		_ = s.docClient.Close()
	}
	if s.videoClient != nil {
		_ = s.videoClient.Close()
	}
	if s.storage != nil {
		_ = s.storage.Close()
	}
	return nil
}

func (s *service) Submit(ctx context.Context, in SubmitInput) (JobHandle, error) {
	if !strings.HasPrefix(in.FileURI, "gs://") {
		return JobHandle{}, fmt.Errorf("file uri must be gs://... got %q", in.FileURI)
	}
	if isAV(in.ProcessingType, in.FileType) {
		return s.submitVideo(ctx, in)
	}
	return s.submitDocument(ctx, in)
}

func (s *service) Poll(ctx context.Context, h JobHandle) (PollResult, error) {
	switch {
	case strings.HasPrefix(h.Name, videoHandlePrefix):
		return s.pollVideo(ctx, strings.TrimPrefix(h.Name, videoHandlePrefix))
	case strings.HasPrefix(h.Name, docHandlePrefix):
		return s.pollDocument(ctx, strings.TrimPrefix(h.Name, docHandlePrefix), h.MetadataURI)
	default:
		return PollResult{}, fmt.Errorf("unrecognized job handle %q", h.Name)
	}
}

func (s *service) submitDocument(ctx context.Context, in SubmitInput) (JobHandle, error) {
	mime := in.FileType
	if mime == "" {
		mime = domain.MimeTypePDF
	}
	outPrefix := fmt.Sprintf("extraction/%s/out/", in.DocumentID)
	outURI := fmt.Sprintf("gs://%s/%s", s.cfg.OutputBucket, outPrefix)

	req := &documentaipb.BatchProcessRequest{
		Name: processorName(s.cfg.ProjectID, s.cfg.Location, s.cfg.ProcessorID, s.cfg.ProcessorVersion),
		InputDocuments: &documentaipb.BatchDocumentsInputConfig{
			Source: &documentaipb.BatchDocumentsInputConfig_GcsDocuments{
				GcsDocuments: &documentaipb.GcsDocuments{
					Documents: []*documentaipb.GcsDocument{{
						GcsUri:   in.FileURI,
						MimeType: mime,
					}},
				},
			},
		},
		DocumentOutputConfig: &documentaipb.DocumentOutputConfig{
			Destination: &documentaipb.DocumentOutputConfig_GcsOutputConfig_{
				GcsOutputConfig: &documentaipb.DocumentOutputConfig_GcsOutputConfig{
					GcsUri: outURI,
				},
			},
		},
	}

	op, err := s.docClient.BatchProcessDocuments(ctx, req)
	if err != nil {
		return JobHandle{}, fmt.Errorf("documentai BatchProcessDocuments: %w", err)
	}

	s.log.Info("document extraction submitted", "document_id", in.DocumentID, "operation", op.Name())

	return JobHandle{
		Name:        docHandlePrefix + op.Name(),
		MediaType:   domain.MediaTypeDocument,
		MetadataURI: outURI,
	}, nil
}

func (s *service) submitVideo(ctx context.Context, in SubmitInput) (JobHandle, error) {
	req := &vipb.AnnotateVideoRequest{
		InputUri: in.FileURI,
		Features: []vipb.Feature{vipb.Feature_SHOT_CHANGE_DETECTION},
	}

	op, err := s.videoClient.AnnotateVideo(ctx, req)
	if err != nil {
		return JobHandle{}, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}

	mediaType := domain.MediaTypeVideo
	if in.ProcessingType == domain.ProcessingTypeAudio || strings.HasPrefix(in.FileType, "audio/") {
		mediaType = domain.MediaTypeAudio
	}

	s.log.Info("media extraction submitted", "document_id", in.DocumentID, "operation", op.Name())

	return JobHandle{
		Name:      videoHandlePrefix + op.Name(),
		MediaType: mediaType,
	}, nil
}

func (s *service) pollDocument(ctx context.Context, name, outURI string) (PollResult, error) {
	op := s.docClient.BatchProcessDocumentsOperation(name)

	if _, err := op.Poll(ctx); err != nil {
		if op.Done() {
			return PollResult{Status: statusFromError(err), Detail: err.Error()}, nil
		}
		return PollResult{}, fmt.Errorf("documentai poll: %w", err)
	}

	if !op.Done() {
		status := StatusInProgress
		if md, err := op.Metadata(); err == nil && md != nil &&
			md.State == documentaipb.BatchProcessMetadata_WAITING {
			status = StatusCreated
		}
		return PollResult{Status: status}, nil
	}

	outputs, err := s.listOutputs(ctx, outURI)
	if err != nil {
		return PollResult{Status: StatusServiceError, Detail: err.Error()}, nil
	}
	return PollResult{
		Status:      StatusSuccess,
		MetadataURI: outURI,
		Outputs:     outputs,
	}, nil
}

func (s *service) pollVideo(ctx context.Context, name string) (PollResult, error) {
	op := s.videoClient.AnnotateVideoOperation(name)

	resp, err := op.Poll(ctx)
	if err != nil {
		if op.Done() {
			return PollResult{Status: statusFromError(err), Detail: err.Error()}, nil
		}
		return PollResult{}, fmt.Errorf("videointelligence poll: %w", err)
	}

	if !op.Done() {
		status := StatusInProgress
		if md, err := op.Metadata(); err == nil && !videoStarted(md) {
			status = StatusCreated
		}
		return PollResult{Status: status}, nil
	}

	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return PollResult{Status: StatusServiceError, Detail: "no annotation results"}, nil
	}
	return PollResult{
		Status: StatusSuccess,
		Shots:  shotsFromAnnotations(resp.AnnotationResults[0].ShotAnnotations),
	}, nil
}

func (s *service) listOutputs(ctx context.Context, outURI string) ([]string, error) {
	bucket, prefix, err := gcp.ParseURI(outURI)
	if err != nil {
		return nil, err
	}
	it := s.storage.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	keys := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(strings.ToLower(attrs.Name), ".json") {
			keys = append(keys, attrs.Name)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func shotsFromAnnotations(ann []*vipb.VideoSegment) []Shot {
	out := make([]Shot, 0, len(ann))
	for _, sh := range ann {
		if sh == nil {
			continue
		}
		start := durToSec(sh.StartTimeOffset)
		end := durToSec(sh.EndTimeOffset)
		out = append(out, Shot{
			Index:         len(out),
			StartSeconds:  start,
			EndSeconds:    end,
			StartTimecode: FormatTimecode(start),
			EndTimecode:   FormatTimecode(end),
		})
	}
	return out
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func videoStarted(md *vipb.AnnotateVideoProgress) bool {
	if md == nil {
		return false
	}
	for _, p := range md.AnnotationProgress {
		if p != nil && p.ProgressPercent > 0 {
			return true
		}
	}
	return false
}

func isAV(processingType, mime string) bool {
	if processingType == domain.ProcessingTypeVideo || processingType == domain.ProcessingTypeAudio {
		return true
	}
	return strings.HasPrefix(mime, "video/") || strings.HasPrefix(mime, "audio/")
}

func processorName(project, location, processorID, version string) string {
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}

// statusFromError folds a terminal operation error into the caller-fault or
// provider-fault bucket. Unknown codes count as provider faults so callers
// never retry on a caller fault by mistake.
func statusFromError(err error) string {
	switch grpcstatus.Code(err) {
	case codes.InvalidArgument,
		codes.NotFound,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.FailedPrecondition,
		codes.OutOfRange:
		return StatusClientError
	default:
		return StatusServiceError
	}
}
