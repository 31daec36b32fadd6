package quote

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/esserdigital/prquotes/internal/imagestore"
)

// LetterheadHash is the content hash of the quoting tool's letterhead
// artifact that shows up in every document. It is seeded into the junk list
// of every extractor so it never reaches the store.
const LetterheadHash = "3cb93dbe5d2e6aa536cfe7d511d9eb69"

// ImageExtractor walks a PDF's embedded image resources and persists the
// ones that are genuinely new: not already in the active store, not
// tombstoned by an earlier deletion, and not on the junk list.
type ImageExtractor struct {
	store  imagestore.Store
	junk   map[string]bool
	logger *slog.Logger
	now    func() time.Time
}

// NewImageExtractor creates an image extractor backed by store. junkHashes
// extends the built-in letterhead exclusion; entries are compared against
// the SHA-1 of each image's byte stream.
func NewImageExtractor(store imagestore.Store, junkHashes []string, logger *slog.Logger) *ImageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	junk := map[string]bool{LetterheadHash: true}
	for _, h := range junkHashes {
		if h != "" {
			junk[h] = true
		}
	}
	return &ImageExtractor{
		store:  store,
		junk:   junk,
		logger: logger,
		now:    time.Now,
	}
}

// rawImage is one embedded image as read from the document, before any
// store interaction.
type rawImage struct {
	objNr    int
	fileType string
	data     []byte
}

// ExtractImages returns refs for the images newly persisted from the PDF at
// path, in object-table order. Enumeration or store failures degrade to
// fewer (or no) refs; they never abort the pipeline.
func (e *ImageExtractor) ExtractImages(path string) []imagestore.Ref {
	images, err := e.enumerate(path)
	if err != nil {
		e.logger.Warn("image enumeration failed", "path", path, "error", err)
		return nil
	}
	return e.persist(images)
}

// enumerate reads every image XObject in the document, ordered by object
// number so repeat runs see the same sequence.
func (e *ImageExtractor) enumerate(path string) ([]rawImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageImages, err := api.ExtractImagesRaw(f, nil, conf)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	seen := make(map[int]bool)
	var images []rawImage
	for _, byObjNr := range pageImages {
		for objNr, img := range byObjNr {
			if seen[objNr] {
				// The same XObject can be referenced from several pages.
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				e.logger.Debug("unreadable image stream", "object", objNr, "error", err)
				continue
			}
			seen[objNr] = true
			images = append(images, rawImage{objNr: objNr, fileType: img.FileType, data: data})
		}
	}

	sort.Slice(images, func(i, j int) bool { return images[i].objNr < images[j].objNr })
	return images, nil
}

// persist runs the dedup rules over images and writes the survivors to the
// active store, returning refs for new additions only.
func (e *ImageExtractor) persist(images []rawImage) []imagestore.Ref {
	var refs []imagestore.Ref
	stamp := e.now().Unix()

	for _, img := range images {
		sum := sha1.Sum(img.data)
		hash := hex.EncodeToString(sum[:])

		if e.junk[hash] {
			e.logger.Debug("excluded junk image", "hash", hash)
			continue
		}
		if tombstoned, err := e.store.Tombstoned(hash); err != nil {
			e.logger.Warn("tombstone lookup failed", "hash", hash, "error", err)
			continue
		} else if tombstoned {
			e.logger.Debug("skipping previously deleted image", "hash", hash)
			continue
		}
		if exists, err := e.store.Exists(hash); err != nil {
			e.logger.Warn("store lookup failed", "hash", hash, "error", err)
			continue
		} else if exists {
			e.logger.Debug("skipping duplicate image", "hash", hash)
			continue
		}

		name := fmt.Sprintf("image_%d_%d.%s", stamp, img.objNr, extensionFor(img.fileType))
		ref, err := e.store.Put(hash, name, img.data)
		if err != nil {
			e.logger.Warn("failed to store image", "name", name, "error", err)
			continue
		}
		refs = append(refs, *ref)
	}

	return refs
}

// extensionFor maps the image's encoding to a file extension: DCT (JPEG)
// streams keep .jpg, everything else is written as .png.
func extensionFor(fileType string) string {
	if fileType == "jpg" || fileType == "jpeg" {
		return "jpg"
	}
	return "png"
}
