package replacement

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	remaperrors "accremap/internal/errors"
)

type mapLookup map[string]string

func (m mapLookup) Lookup(accession string) (string, bool) {
	v, ok := m[accession]
	return v, ok
}

var grch38 = mapLookup{
	"NC_000001.11": "CM000663.2",
	"NC_000002.12": "CM000664.2",
	"NC_012920.1":  "J01415.2",
}

const annotation = "##gff-version 3\n" +
	"#!gff-spec-version 1.21\n" +
	"#!processor NCBI annotwriter\n" +
	"##sequence-region NC_000001.11 1 248956422\n" +
	"NC_000001.11\tRefSeq\tregion\t1\t248956422\t.\t+\t.\tID=NC_000001.11:1..248956422\n" +
	"NC_000001.11\tBestRefSeq\tgene\t11874\t14409\t.\t+\t.\tID=gene-DDX11L1\n" +
	"###\n" +
	"NC_999999.1\tRefSeq\tregion\t1\t100\t.\t+\t.\tID=unknown\n" +
	"\n" +
	"NC_012920.1\tRefSeq\tregion\t1\t16569\t.\t+\t.\tID=chrM\n" +
	"##gff-version 3.1.26\n"

func TestRemapLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		kind      LineKind
		want      string
		dropped   bool
		remapped  bool
		accession string
	}{
		{
			name:      "refseq to genbank",
			line:      "NC_000001.11\t.\tregion\t1\t248956422\t.\t+\t.\tID=chr1\n",
			kind:      LineRecord,
			want:      "CM000663.2\t.\tregion\t1\t248956422\t.\t+\t.\tID=chr1\n",
			remapped:  true,
			accession: "NC_000001.11",
		},
		{
			name:      "unmapped accession kept",
			line:      "NC_999999.1\t.\tregion\t1\t100\t.\t+\t.\tID=x\n",
			kind:      LineRecord,
			want:      "NC_999999.1\t.\tregion\t1\t100\t.\t+\t.\tID=x\n",
			accession: "NC_999999.1",
		},
		{
			name: "gff header verbatim",
			line: "##gff-version 3\n",
			kind: LineHeader,
			want: "##gff-version 3\n",
		},
		{
			name:    "other directive dropped",
			line:    "##sequence-region NC_000001.11 1 248956422\n",
			kind:    LineComment,
			dropped: true,
		},
		{
			name:    "comment dropped",
			line:    "#!processor NCBI annotwriter\n",
			kind:    LineComment,
			dropped: true,
		},
		{
			name: "blank line kept",
			line: "\n",
			kind: LineBlank,
			want: "\n",
		},
		{
			name:      "crlf terminator preserved",
			line:      "NC_012920.1\tRefSeq\tregion\t1\t16569\t.\t+\t.\tID=chrM\r\n",
			kind:      LineRecord,
			want:      "J01415.2\tRefSeq\tregion\t1\t16569\t.\t+\t.\tID=chrM\r\n",
			remapped:  true,
			accession: "NC_012920.1",
		},
		{
			name:      "no terminator at eof",
			line:      "NC_000002.12\tRefSeq\tregion\t1\t242193529\t.\t+\t.\tID=chr2",
			kind:      LineRecord,
			want:      "CM000664.2\tRefSeq\tregion\t1\t242193529\t.\t+\t.\tID=chr2",
			remapped:  true,
			accession: "NC_000002.12",
		},
		{
			name:      "single field line",
			line:      "NC_000002.12\n",
			kind:      LineRecord,
			want:      "CM000664.2\n",
			remapped:  true,
			accession: "NC_000002.12",
		},
		{
			name:      "seqid is matched exactly",
			line:      "NC_000001.1\tRefSeq\tregion\n",
			kind:      LineRecord,
			want:      "NC_000001.1\tRefSeq\tregion\n",
			accession: "NC_000001.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemapLine(grch38, tt.line)

			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, tt.dropped, got.Dropped)
			assert.Equal(t, tt.remapped, got.Remapped)
			assert.Equal(t, tt.accession, got.Accession)
		})
	}
}

func TestRemapLinePreservesFieldCount(t *testing.T) {
	lines := []string{
		"NC_000001.11\t.\tregion\t1\t248956422\t.\t+\t.\tID=chr1",
		"NC_000001.11\t\t\t\t",
		"NC_999999.1\ta\tb",
		"NC_000002.12",
	}

	for _, line := range lines {
		got := RemapLine(grch38, line)
		assert.Equal(t, strings.Count(line, "\t"), strings.Count(got.Text, "\t"), line)

		_, inRest, _ := strings.Cut(line, "\t")
		_, outRest, _ := strings.Cut(got.Text, "\t")
		assert.Equal(t, inRest, outRest, line)
	}
}

func TestProcess(t *testing.T) {
	engine := NewEngine(grch38, "annotation.gff3")

	var warnings []*remaperrors.UnmappedAccessionWarning
	engine.OnUnmapped(func(w *remaperrors.UnmappedAccessionWarning) {
		warnings = append(warnings, w)
	})

	var out bytes.Buffer
	result, err := engine.Process(context.Background(), strings.NewReader(annotation), &out)
	require.NoError(t, err)

	want := "##gff-version 3\n" +
		"CM000663.2\tRefSeq\tregion\t1\t248956422\t.\t+\t.\tID=NC_000001.11:1..248956422\n" +
		"CM000663.2\tBestRefSeq\tgene\t11874\t14409\t.\t+\t.\tID=gene-DDX11L1\n" +
		"NC_999999.1\tRefSeq\tregion\t1\t100\t.\t+\t.\tID=unknown\n" +
		"\n" +
		"J01415.2\tRefSeq\tregion\t1\t16569\t.\t+\t.\tID=chrM\n" +
		"##gff-version 3.1.26\n"
	assert.Equal(t, want, out.String())

	assert.Equal(t, 11, result.LinesRead)
	assert.Equal(t, 7, result.LinesWritten)
	assert.Equal(t, 2, result.Headers)
	assert.Equal(t, 4, result.Comments)
	assert.Equal(t, 1, result.Blanks)
	assert.Equal(t, 3, result.Remapped)
	assert.Equal(t, 1, result.Unmapped)
	assert.Equal(t, map[string]int{"NC_999999.1": 1}, result.UnmappedAccessions)
	assert.Equal(t, "annotation.gff3", result.Source)

	require.Len(t, warnings, 1)
	assert.Equal(t, 8, warnings[0].Line)
	assert.Equal(t, "NC_999999.1", warnings[0].Accession)
	assert.Equal(t, "NC_999999.1\tRefSeq\tregion\t1\t100\t.\t+\t.\tID=unknown", warnings[0].Row)
	assert.Equal(t, "annotation.gff3", warnings[0].Path)
}

func TestProcessIsDeterministic(t *testing.T) {
	engine := NewEngine(grch38, "annotation.gff3")

	var first, second bytes.Buffer
	_, err := engine.Process(context.Background(), strings.NewReader(annotation), &first)
	require.NoError(t, err)
	_, err = engine.Process(context.Background(), strings.NewReader(annotation), &second)
	require.NoError(t, err)

	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestProcessWithoutTrailingNewline(t *testing.T) {
	engine := NewEngine(grch38, "in.gff3")

	var out bytes.Buffer
	result, err := engine.Process(context.Background(), strings.NewReader("##gff-version 3\nNC_000001.11\t.\tregion"), &out)
	require.NoError(t, err)

	assert.Equal(t, "##gff-version 3\nCM000663.2\t.\tregion", out.String())
	assert.Equal(t, 2, result.LinesRead)
}

func TestProcessEmptyInput(t *testing.T) {
	engine := NewEngine(grch38, "in.gff3")

	var out bytes.Buffer
	result, err := engine.Process(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)

	assert.Empty(t, out.String())
	assert.Zero(t, result.LinesRead)
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(grch38, "in.gff3")
	_, err := engine.Process(ctx, strings.NewReader("NC_000001.11\t.\tregion\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestProcessWriteFailure(t *testing.T) {
	engine := NewEngine(grch38, "in.gff3")
	_, err := engine.Process(context.Background(), strings.NewReader(annotation), failingWriter{})
	assert.Error(t, err)
}

func TestUseCustomMiddleware(t *testing.T) {
	engine := NewEngine(grch38, "in.gff3")
	engine.Use(func(ctx LineContext) LineContext {
		if ctx.Result.Kind == LineRecord && !ctx.Result.Remapped {
			ctx.Result.Dropped = true
		}
		return ctx
	})

	var out bytes.Buffer
	result, err := engine.Process(context.Background(), strings.NewReader(annotation), &out)
	require.NoError(t, err)

	assert.NotContains(t, out.String(), "NC_999999.1")
	assert.Equal(t, 6, result.LinesWritten)
}

func TestLineKindString(t *testing.T) {
	assert.Equal(t, "record", LineRecord.String())
	assert.Equal(t, "header", LineHeader.String())
	assert.Equal(t, "comment", LineComment.String())
	assert.Equal(t, "blank", LineBlank.String())
	assert.Equal(t, "unknown", LineKind(42).String())
}
