// Package qcfile turns one platform QC export into a sequence of records.
//
// A file is read fully per call: the first line is the header, every further
// line is one record. Double quotes are stripped rather than honoured, because
// none of the three platforms quote their delimiters.
package qcfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/golang-sql/civil"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"qcingest/internal/datasource"
	"qcingest/internal/logging"
	"qcingest/internal/normalize"
	"qcingest/internal/platform"
	"qcingest/internal/records"
)

// ErrRead wraps every failure to open or read a QC file.
var ErrRead = errors.New("read qc file")

const maxLineSize = 4 << 20

// Builder builds records for a single platform. It holds no per-file state and
// may be shared by concurrent workers.
type Builder struct {
	platform platform.Platform
	cfg      platform.Config
	log      *log.Logger
}

// NewBuilder returns a Builder for p. A nil logger uses the default logger.
func NewBuilder(p platform.Platform, logger *log.Logger) *Builder {
	return &Builder{platform: p, cfg: p.Config(), log: logging.OrDefault(logger)}
}

// Platform returns the platform the builder was created for.
func (b *Builder) Platform() platform.Platform { return b.platform }

// BuildSource opens src and builds its records under the source's name.
func (b *Builder) BuildSource(ctx context.Context, src datasource.Source) ([]records.Record, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer rc.Close()
	return b.Build(ctx, rc, src.Name())
}

// Build reads a QC export from r. An empty input yields no records and no
// error. Cancellation is checked between rows, never inside one.
func (b *Builder) Build(ctx context.Context, r io.Reader, fileName string) ([]records.Record, error) {
	sc := bufio.NewScanner(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, fileName, err)
		}
		b.log.Warn("file is empty", "file", fileName, "platform", b.platform)
		return nil, nil
	}
	headers := normalize.CanonicalHeaders(sc.Text(), b.platform)

	var out []records.Record
	lineNo := 1
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		out = append(out, b.buildRow(sc.Text(), headers, fileName, lineNo))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s line %d: %w", ErrRead, fileName, lineNo+1, err)
	}
	return out, nil
}

// buildRow pairs fields with headers by position. Fields past the last header
// and headers past the last field are ignored.
func (b *Builder) buildRow(line string, headers []string, fileName string, lineNo int) records.Record {
	rec := records.Record{
		FileName: fileName,
		Platform: b.platform.String(),
		Line:     lineNo,
		Metrics:  records.Metrics{},
	}

	fields := strings.Split(strings.ReplaceAll(line, `"`, ""), b.cfg.Delimiter)
	n := min(len(fields), len(headers))
	for i := 0; i < n; i++ {
		h := headers[i]
		v := normalize.ConvertValue(normalize.StripFloatSuffix(fields[i]))
		s := normalize.FormatValue(v)
		if h == "" || normalize.IsMissing(s) {
			continue
		}

		switch h {
		case normalize.SampleID:
			rec.SampleID = s
		case normalize.ExperimentName:
			rec.ExperimentName = s
		case normalize.AnalysisDate:
			rec.AnalysisDate = b.columnDate(s, fileName, lineNo)
		default:
			if str, ok := v.(string); ok {
				v = normalize.CompactWhitespace(str)
			}
			rec.Metrics[h] = v
		}
	}

	if rec.AnalysisDate == nil && b.cfg.FilenameDateFallback {
		if d, ok := normalize.DateFromFilename(fileName); ok {
			rec.AnalysisDate = &d
		}
	}
	return rec
}

func (b *Builder) columnDate(s, fileName string, lineNo int) *civil.Date {
	d, err := normalize.ParseColumnDate(s, b.platform)
	if err != nil {
		if errors.Is(err, normalize.ErrNoDateLayouts) {
			b.log.Debug("analysis date column ignored", "file", fileName, "line", lineNo, "platform", b.platform)
		} else {
			b.log.Warn("failed to parse date", "file", fileName, "line", lineNo, "value", s, "err", err)
		}
		return nil
	}
	return &d
}
