package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohits-web03/estately/internal/classifier"
	"github.com/rohits-web03/estately/internal/metrics"
	"github.com/rohits-web03/estately/internal/models"
	"github.com/rohits-web03/estately/internal/purge"
	"golang.org/x/sync/errgroup"
)

// ObjectStore is the slice of object storage the image flows need.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
	GeneratePresignedPutURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	VerifyObjectExists(ctx context.Context, key string) (bool, error)
}

type PipelineState int

const (
	StateIdle PipelineState = iota
	StateUploading
	StateClassifying
	StateReady
	StateClosed
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUploading:
		return "uploading"
	case StateClassifying:
		return "classifying"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrIllegalTransition = errors.New("illegal image pipeline transition")

// ImageFile is one file selected for upload.
type ImageFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadReport struct {
	Uploaded []string `json:"uploaded"`
	Failed   int      `json:"failedUploads"`
}

type ClassifyReport struct {
	Accepted []string `json:"accepted"`
	Rejected []string `json:"rejected"`
}

// ImagePipeline is one listing-edit session's image set. It moves
// Idle -> Uploading -> Classifying -> Ready and ends Closed after Submit or
// Cancel. Rejected images and images abandoned by Cancel are purged.
type ImagePipeline struct {
	mu      sync.Mutex
	state   PipelineState
	ownerID string
	svc     *ImageService

	urls    []string // form state
	pending []string // uploaded, awaiting classification
	session []string // uploaded by this pipeline
}

func (p *ImagePipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// URLs returns the current image set.
func (p *ImagePipeline) URLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.urls)
}

func (p *ImagePipeline) settledLocked() PipelineState {
	if len(p.urls) == 0 {
		return StateIdle
	}
	return StateReady
}

func (p *ImagePipeline) transition(from []PipelineState, to PipelineState) (PipelineState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(from, p.state) {
		return p.state, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, p.state, to)
	}
	prev := p.state
	p.state = to
	return prev, nil
}

// Upload stores files in parallel and keeps the successes. Failures are
// counted, not fatal.
func (p *ImagePipeline) Upload(ctx context.Context, files []ImageFile) (UploadReport, error) {
	if len(files) == 0 {
		return UploadReport{}, Invalid("You must select at least one image!")
	}
	p.mu.Lock()
	over := len(p.urls)+len(files) > models.MaxListingImages
	p.mu.Unlock()
	if over {
		return UploadReport{}, Invalid(fmt.Sprintf("You can only upload %d images per listing!", models.MaxListingImages))
	}
	if _, err := p.transition([]PipelineState{StateIdle, StateReady}, StateUploading); err != nil {
		return UploadReport{}, err
	}

	results := make([]string, len(files))
	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			url, err := p.svc.upload(ctx, p.ownerID, f)
			if err != nil {
				slog.Warn("image upload failed", "owner", p.ownerID, "file", f.Name, "err", err)
				return nil
			}
			results[i] = url
			return nil
		})
	}
	_ = g.Wait()

	var report UploadReport
	for _, url := range results {
		if url == "" {
			report.Failed++
			continue
		}
		report.Uploaded = append(report.Uploaded, url)
	}
	metrics.ImagesUploaded.Add(float64(len(report.Uploaded)))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, report.Uploaded...)
	p.session = append(p.session, report.Uploaded...)
	if len(p.pending) > 0 {
		p.state = StateClassifying
	} else {
		p.state = p.settledLocked()
	}
	return report, nil
}

// Classify runs the classifier over every pending image. Rejected images,
// including those the classifier failed on, leave the set and are purged.
func (p *ImagePipeline) Classify(ctx context.Context) (ClassifyReport, error) {
	p.mu.Lock()
	if p.state != StateClassifying {
		defer p.mu.Unlock()
		return ClassifyReport{}, fmt.Errorf("%w: %s -> classify", ErrIllegalTransition, p.state)
	}
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	accepted, rejected := p.svc.classifyAll(ctx, pending)
	if len(rejected) > 0 {
		p.svc.purger.Purge(ctx, purge.ReasonRejected, rejected)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, accepted...)
	p.state = p.settledLocked()
	return ClassifyReport{Accepted: accepted, Rejected: rejected}, nil
}

// Remove drops url from the set and deletes its object.
func (p *ImagePipeline) Remove(ctx context.Context, url string) error {
	p.mu.Lock()
	if p.state != StateReady {
		defer p.mu.Unlock()
		return fmt.Errorf("%w: %s -> remove", ErrIllegalTransition, p.state)
	}
	i := slices.Index(p.urls, url)
	if i < 0 {
		p.mu.Unlock()
		return NotFound("Image not found!")
	}
	p.urls = slices.Delete(p.urls, i, i+1)
	p.state = p.settledLocked()
	p.mu.Unlock()

	if !p.svc.OwnsURL(p.ownerID, url) {
		return nil
	}
	return p.svc.Delete(ctx, p.ownerID, url)
}

// Submit closes the pipeline and returns the final image set.
func (p *ImagePipeline) Submit() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle && p.state != StateReady {
		return nil, fmt.Errorf("%w: %s -> submit", ErrIllegalTransition, p.state)
	}
	p.state = StateClosed
	return slices.Clone(p.urls), nil
}

// Cancel closes the pipeline and purges every image it uploaded that is
// still held. Rejected images were already purged. Calling Cancel on a
// closed pipeline does nothing.
func (p *ImagePipeline) Cancel(ctx context.Context) {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return
	}
	var abandoned []string
	for _, url := range p.session {
		if slices.Contains(p.urls, url) || slices.Contains(p.pending, url) {
			abandoned = append(abandoned, url)
		}
	}
	p.state = StateClosed
	p.urls, p.pending = nil, nil
	p.mu.Unlock()

	if len(abandoned) > 0 {
		p.svc.purger.Purge(ctx, purge.ReasonDiscarded, abandoned)
	}
}

// ImageService owns object-storage access for listing images.
type ImageService struct {
	storage    ObjectStore
	classifier classifier.Classifier
	purger     purge.Purger
	timeout    time.Duration
}

func NewImageService(storage ObjectStore, c classifier.Classifier, purger purge.Purger, timeout time.Duration) *ImageService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ImageService{storage: storage, classifier: c, purger: purger, timeout: timeout}
}

// NewPipeline starts an edit session holding the listing's existing images.
func (s *ImageService) NewPipeline(ownerID string, existing []string) *ImagePipeline {
	p := &ImagePipeline{ownerID: ownerID, svc: s, urls: slices.Clone(existing)}
	p.state = p.settledLocked()
	return p
}

func objectKey(ownerID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 6 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return fmt.Sprintf("%s%d-%s%s", ownerPrefix(ownerID), time.Now().UnixMilli(), uuid.NewString(), ext)
}

// OwnsURL reports whether url is an object stored under ownerID's prefix.
func (s *ImageService) OwnsURL(ownerID, url string) bool {
	return ownsURL(s.storage, ownerID, url)
}

func (s *ImageService) upload(ctx context.Context, ownerID string, f ImageFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.storage.Upload(ctx, objectKey(ownerID, f.Name), rc, f.Size, f.ContentType)
}

// classifyAll fans out one classifier call per URL and partitions them,
// preserving input order. Classifier errors reject.
func (s *ImageService) classifyAll(ctx context.Context, urls []string) (accepted, rejected []string) {
	ok := make([]bool, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			v, err := s.classifier.Classify(cctx, url)
			switch {
			case err != nil:
				slog.Warn("image classification failed", "url", url, "err", err)
				metrics.ImagesRejected.WithLabelValues("error").Inc()
			case !v.Accepted:
				metrics.ImagesRejected.WithLabelValues("concept").Inc()
			default:
				ok[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()
	for i, url := range urls {
		if ok[i] {
			accepted = append(accepted, url)
		} else {
			rejected = append(rejected, url)
		}
	}
	return accepted, rejected
}

// ValidateImages reports whether every URL is classified as a property photo.
func (s *ImageService) ValidateImages(ctx context.Context, urls []string) bool {
	_, rejected := s.classifyAll(ctx, urls)
	return len(rejected) == 0
}

type PresignResult struct {
	UploadURL string    `json:"uploadUrl"`
	PublicURL string    `json:"publicUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Presign returns a PUT URL for a direct-to-storage upload.
func (s *ImageService) Presign(ctx context.Context, ownerID, filename, contentType string, expires time.Duration) (PresignResult, error) {
	key := objectKey(ownerID, filename)
	uploadURL, err := s.storage.GeneratePresignedPutURL(ctx, key, contentType, expires)
	if err != nil {
		return PresignResult{}, Upstream("Failed to generate upload URL", err)
	}
	return PresignResult{
		UploadURL: uploadURL,
		PublicURL: s.storage.PublicURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(expires).UTC(),
	}, nil
}

// Complete finishes a presigned upload: the object must exist under the
// caller's prefix and pass classification, otherwise it is purged.
func (s *ImageService) Complete(ctx context.Context, ownerID, url string) error {
	if !s.OwnsURL(ownerID, url) {
		return Unauthorized("You can only upload your own images!")
	}
	key, _ := s.storage.KeyFromURL(url)
	vctx, cancel := context.WithTimeout(ctx, s.timeout)
	exists, err := s.storage.VerifyObjectExists(vctx, key)
	cancel()
	if err != nil {
		return Upstream("Failed to verify upload", err)
	}
	if !exists {
		return NotFound("Image not found!")
	}
	metrics.ImagesUploaded.Inc()
	if _, rejected := s.classifyAll(ctx, []string{url}); len(rejected) > 0 {
		s.purger.Purge(ctx, purge.ReasonRejected, rejected)
		return Invalid("Invalid image(s) found! Make sure each image is an appropriate property image!")
	}
	return nil
}

// Discard purges uploaded-but-unsubmitted images. URLs outside the
// caller's prefix are ignored; the count of scheduled URLs is returned.
func (s *ImageService) Discard(ctx context.Context, ownerID string, urls []string) int {
	own := ownedBy(s.storage, ownerID, urls)
	if len(own) > 0 {
		s.purger.Purge(ctx, purge.ReasonDiscarded, own)
	}
	return len(own)
}

// Delete removes one image synchronously.
func (s *ImageService) Delete(ctx context.Context, ownerID, url string) error {
	if !s.OwnsURL(ownerID, url) {
		return Unauthorized("You can only delete your own images!")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.storage.DeleteByURL(ctx, url); err != nil {
		return Upstream("Failed to delete image", err)
	}
	return nil
}
