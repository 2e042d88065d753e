package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"sitesense-backend/internal/objectstore"
)

type byteRange struct {
	start, end int64
}

// parseByteRange reads a single "bytes=" range against size. ok is false when
// the header is absent or malformed and should be ignored; satisfiable is
// false when the range lies outside the object.
func parseByteRange(header string, size int64) (r byteRange, ok, satisfiable bool) {
	rangeSpec, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || strings.Contains(rangeSpec, ",") {
		return byteRange{}, false, false
	}
	startStr, endStr, found := strings.Cut(rangeSpec, "-")
	if !found {
		return byteRange{}, false, false
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	if startStr == "" {
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix < 0 {
			return byteRange{}, false, false
		}
		if suffix == 0 || size == 0 {
			return byteRange{}, true, false
		}
		if suffix > size {
			suffix = size
		}
		return byteRange{start: size - suffix, end: size - 1}, true, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false, false
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return byteRange{}, false, false
		}
		if end > size-1 {
			end = size - 1
		}
	}
	if start >= size {
		return byteRange{}, true, false
	}
	return byteRange{start: start, end: end}, true, true
}

// serveBytes writes data honouring a Range header for audio and video.
func serveBytes(c *gin.Context, data []byte, contentType string) {
	size := int64(len(data))
	c.Header("Accept-Ranges", "bytes")

	if header := c.GetHeader("Range"); header != "" && objectstore.IsStreamable(contentType) {
		r, ok, satisfiable := parseByteRange(header, size)
		if ok && !satisfiable {
			c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if ok {
			c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, size))
			c.Header("Content-Length", strconv.FormatInt(r.end-r.start+1, 10))
			c.Data(http.StatusPartialContent, contentType, data[r.start:r.end+1])
			return
		}
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Content-Length", strconv.FormatInt(size, 10))
	c.Data(http.StatusOK, contentType, data)
}
