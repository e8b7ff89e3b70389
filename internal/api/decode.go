package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/gustavobizon/sprint-programacao/internal/sensor"
)

const (
	mediaTypeJSON = "application/json"
	mediaTypeCBOR = "application/cbor"
)

var (
	errBodyTooLarge        = errors.New("request body too large")
	errUnsupportedEncoding = errors.New("unsupported content encoding")
)

// cborDecMode decodes maps with string keys so CBOR readings look the
// same as JSON ones to the validator.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 8,
	}.DecMode()
	if err != nil {
		panic("api: CBOR decoder initialization failed: " + err.Error())
	}
}

// decodeJSON decodes a JSON request body into v. An empty body leaves v
// untouched, so missing fields surface as empty values.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return err
	}
	return nil
}

// decodeBatch reads an ingest body. The body may be JSON or CBOR, as
// declared by Content-Type, and optionally gzip or zstd compressed. The
// size limit applies to both the compressed and the decompressed bytes.
func (s *Server) decodeBatch(r *http.Request) (sensor.Batch, error) {
	body, err := s.readBody(r)
	if err != nil {
		return nil, err
	}

	switch contentType(r) {
	case mediaTypeCBOR:
		var v any
		if err := cborDecMode.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", sensor.ErrMalformedBody, err)
		}
		return sensor.BatchFromValue(v)
	default:
		return sensor.ParseJSONBatch(body)
	}
}

func (s *Server) readBody(r *http.Request) ([]byte, error) {
	var src io.Reader = r.Body

	switch enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", sensor.ErrMalformedBody, err)
		}
		defer zr.Close()
		src = zr
	case "zstd":
		zr, err := zstd.NewReader(r.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", sensor.ErrMalformedBody, err)
		}
		defer zr.Close()
		src = zr
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEncoding, enc)
	}

	limit := s.maxBodyBytes()
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("%w: %w", sensor.ErrMalformedBody, err)
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// contentType returns the media type of the request body, defaulting to JSON.
func contentType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return mediaTypeJSON
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return mediaTypeJSON
	}
	return mt
}
