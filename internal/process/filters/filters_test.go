package filters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/channel-curator/internal/core/domain"
)

func testFilterer() *Filterer {
	return New(Config{
		MinLen:    20,
		MinViews:  50,
		MinER:     0.025,
		StopWords: []string{"эфир", "таро", "[invalid"},
	})
}

func TestFilterer_Apply(t *testing.T) {
	long := strings.Repeat("новости ", 5)

	tests := []struct {
		name       string
		in         Input
		wantReason string
		wantText   string
		wantWord   string
	}{
		{
			name:       "empty text",
			in:         Input{Channel: "c", Text: ""},
			wantReason: ReasonNoText,
		},
		{
			name:       "missing channel",
			in:         Input{Text: long},
			wantReason: ReasonNoChannel,
			wantText:   long,
		},
		{
			name:       "short after link strip",
			in:         Input{Channel: "c", Text: "short text [read](https://example.com/a-long-article-path)"},
			wantReason: ReasonMinLength,
			wantText:   "short text",
		},
		{
			name:       "stop word",
			in:         Input{Channel: "c", Text: long + "прямой эфир"},
			wantReason: ReasonStopWord,
			wantText:   long + "прямой эфир",
			wantWord:   "эфир",
		},
		{
			name:     "stop words are case sensitive",
			in:       Input{Channel: "c", Text: long + "Эфир"},
			wantText: long + "Эфир",
		},
		{
			name:     "invalid pattern is matched literally",
			in:       Input{Channel: "c", Text: long + "invalid"},
			wantText: long + "invalid",
		},
		{
			name: "low engagement",
			in: Input{
				Channel:   "c",
				Text:      long,
				Views:     domain.Ptr[int64](1000),
				Reactions: domain.Ptr[int64](5),
				Forwards:  domain.Ptr[int64](5),
			},
			wantReason: ReasonEngagement,
			wantText:   long,
		},
		{
			name: "low engagement on last message passes",
			in: Input{
				Channel:   "c",
				Text:      long,
				Views:     domain.Ptr[int64](1000),
				Reactions: domain.Ptr[int64](5),
				Last:      true,
			},
			wantText: long,
		},
		{
			name: "low engagement under view threshold passes",
			in: Input{
				Channel: "c",
				Text:    long,
				Views:   domain.Ptr[int64](50),
			},
			wantText: long,
		},
		{
			name: "enough engagement",
			in: Input{
				Channel:   "c",
				Text:      long,
				Views:     domain.Ptr[int64](1000),
				Reactions: domain.Ptr[int64](20),
				Forwards:  domain.Ptr[int64](5),
			},
			wantText: long,
		},
		{
			name:     "no metrics",
			in:       Input{Channel: "c", Text: long},
			wantText: long,
		},
	}

	f := testFilterer()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Apply(tt.in)

			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantReason == "", got.Passed())
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantWord, got.StopWord)
		})
	}
}

func TestFilterer_LinkOnlyPostStripsToEmpty(t *testing.T) {
	f := New(Config{})

	res := f.Apply(Input{Channel: "c", Text: "[read](https://example.com/post)"})

	assert.True(t, res.Passed())
	assert.True(t, res.Stripped)
	assert.Empty(t, res.Text)

	res = f.Apply(Input{Text: "[read](https://example.com/post)"})
	assert.False(t, res.Stripped)
	assert.Equal(t, ReasonNoChannel, res.Reason)
}

func TestFilterer_LengthCountsRunes(t *testing.T) {
	f := New(Config{MinLen: 10})

	// 10 Cyrillic runes, 20 bytes.
	got := f.Apply(Input{Channel: "c", Text: "абвгдежзий"})
	assert.True(t, got.Passed())

	got = f.Apply(Input{Channel: "c", Text: "абвгдежзи"})
	assert.Equal(t, ReasonMinLength, got.Reason)
}

func TestStripTrailingLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no links", in: "plain text", want: "plain text"},
		{name: "single trailing", in: "body [src](https://a.b/c)", want: "body"},
		{name: "each line", in: "one [a](http://x.y)\ntwo [b](https://z.w)", want: "one\ntwo"},
		{name: "inline kept", in: "see [a](https://x.y) here", want: "see [a](https://x.y) here"},
		{name: "non http kept", in: "body [a](tg://resolve)", want: "body [a](tg://resolve)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTrailingLinks(tt.in))
		})
	}
}

func TestEngagementRate(t *testing.T) {
	assert.InDelta(t, 0.0, EngagementRate(nil, domain.Ptr[int64](3), nil), 1e-9)
	assert.InDelta(t, 0.0, EngagementRate(domain.Ptr[int64](0), domain.Ptr[int64](3), nil), 1e-9)
	assert.InDelta(t, 0.05, EngagementRate(domain.Ptr[int64](100), domain.Ptr[int64](3), domain.Ptr[int64](2)), 1e-9)
}
