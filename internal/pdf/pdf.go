package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoPageImage is returned when the selected page carries no raster image.
var ErrNoPageImage = errors.New("pdf: page has no embedded image")

// ExtractImages extracts all images from a PDF file using pdfcpu's extract functionality.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	// Parse page range if provided
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	// Create temporary directory for extracted images
	tempDir, err := os.MkdirTemp("", "pdf-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	// pdfcpu takes page selections as strings
	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, pageNum := range pageNumbers {
			pageStrings[i] = strconv.Itoa(pageNum)
		}
	}

	// Extract images using pdfcpu
	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	// Load extracted images
	result, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// PageImage returns the first embedded image on the given 1-based page. This
// is what the editor displays and recognizes for a PDF input.
func PageImage(filename string, page int) (image.Image, error) {
	if page < 1 {
		page = 1
	}
	pages, err := ExtractImages(filename, strconv.Itoa(page))
	if err != nil {
		return nil, err
	}
	imgs := pages[page]
	if len(imgs) == 0 {
		return nil, fmt.Errorf("%w (page %d)", ErrNoPageImage, page)
	}
	return imgs[0], nil
}

// PageCount returns the number of pages in the document.
func PageCount(filename string) (int, error) {
	n, err := api.PageCountFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	return n, nil
}

// loadImageFile loads an image from a file path.
func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from our own temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// collectExtractedImages walks the given directory and groups images by page number.
// Images within a page are ordered by file name so the first image is stable.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	type entry struct {
		name string
		img  image.Image
	}
	byPage := make(map[int][]entry)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			// Skip files we can't parse as page images
			return nil
		}
		img, err := loadImageFile(path)
		if err != nil || img == nil {
			// Skip unreadable images
			return nil
		}
		byPage[pageNum] = append(byPage[pageNum], entry{name: info.Name(), img: img})
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make(map[int][]image.Image, len(byPage))
	for page, entries := range byPage {
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
		for _, e := range entries {
			result[page] = append(result[page], e.img)
		}
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from a pdfcpu extracted filename.
// pdfcpu writes <pdfbase>_<page>_<id>.<ext>; the older page_<num>_image_<idx>.<ext>
// layout is accepted as well.
func parsePageFromFilename(filename string) (int, error) {
	if strings.HasPrefix(filename, "page_") {
		parts := strings.Split(filename, "_")
		pageNum, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, errors.New("invalid page number")
		}
		return pageNum, nil
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, errors.New("not a page file")
	}
	pageNum, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if pageRange == "" {
		return nil, nil
	}

	var pages []int
	// Split by commas for individual pages/ranges
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}
