package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rohits-web03/estately/internal/classifier"
)

const testBase = "https://cdn.test"

type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string]string
	failName string
	deleted  []string
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string]string{}} }

func (f *fakeStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, _ := io.ReadAll(body)
	if f.failName != "" && string(data) == f.failName {
		return "", errors.New("upload failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(data)
	return f.PublicURL(key), nil
}

func (f *fakeStorage) DeleteByURL(_ context.Context, url string) error {
	key, ok := f.KeyFromURL(url)
	if !ok {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string { return testBase + "/" + key }

func (f *fakeStorage) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, testBase+"/")
	return key, ok && key != ""
}

func (f *fakeStorage) GeneratePresignedPutURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key + "?sig=1", nil
}

func (f *fakeStorage) VerifyObjectExists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) content(url string) string {
	key, _ := f.KeyFromURL(url)
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.objects[key]; ok {
		return c
	}
	return url
}

// keywordClassifier accepts images whose content mentions "house" and
// errors on "error". URLs not in storage are judged by the URL itself.
type keywordClassifier struct{ store *fakeStorage }

func (k keywordClassifier) Classify(_ context.Context, url string) (classifier.Verdict, error) {
	c := url
	if k.store != nil {
		c = k.store.content(url)
	}
	if strings.Contains(c, "error") {
		return classifier.Verdict{}, errors.New("upstream down")
	}
	return classifier.Verdict{Accepted: strings.Contains(c, "house")}, nil
}

type recordingPurger struct {
	mu   sync.Mutex
	urls map[string][]string
}

func newRecordingPurger() *recordingPurger { return &recordingPurger{urls: map[string][]string{}} }

func (r *recordingPurger) Purge(_ context.Context, reason string, urls []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls[reason] = append(r.urls[reason], urls...)
}

func (r *recordingPurger) get(reason string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.urls[reason]
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context) { c.n++ }

func file(name, content string) ImageFile {
	return ImageFile{
		Name:        name,
		ContentType: "image/jpeg",
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
