package builder

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

const (
	// DefaultMaxHitSize is the default maximum byte length of one hit URL.
	DefaultMaxHitSize = 8000

	// DefaultPixelPath is the default collector path.
	DefaultPixelPath = "/hit.xiti"

	// multihitReserve is the number of bytes kept free in every hit for the multihit marker.
	multihitReserve = 30

	schemeSecure   = "https"
	schemeInsecure = "http"

	logMsgHitsBuilt         = "hits built"
	logMsgOversizedFragment = "hit exceeds max size and could not be split"
	logAttrHitCount         = "hit_count"
	logAttrParameterCount   = "parameter_count"
	logAttrOversizedCount   = "oversized_count"
	logAttrDurationMS       = "duration_ms"
	logAttrKey              = "key"
	logAttrSize             = "size"
	logAttrMaxHitSize       = "max_hit_size"
)

var (
	// ErrEmptySite is returned when the Configuration has no site id.
	ErrEmptySite = errors.New("site must not be empty")

	// ErrEmptyDomain is returned when the Configuration has no collector domain.
	ErrEmptyDomain = errors.New("domain must not be empty")

	// ErrInvalidMaxHitSize is returned when the preamble and the multihit reserve do not fit into MaxHitSize.
	ErrInvalidMaxHitSize = errors.New("max hit size is too small for the hit preamble")

	// ErrNilMultihitIDGenerator is returned when a nil generator is supplied to WithMultihitIDGenerator.
	ErrNilMultihitIDGenerator = errors.New("multihit id generator must not be nil")
)

// Configuration is the tracker-wide configuration the Builder needs to produce hit URLs.
type Configuration struct {
	// Log is the collector sub-domain used for plain http hits.
	Log string

	// LogSSL is the collector sub-domain used for https hits.
	LogSSL string

	// Domain is the collector domain, e.g. "xiti.com".
	Domain string

	// PixelPath is the collector path. Empty means DefaultPixelPath.
	PixelPath string

	// Site is the site id sent as the first query parameter of every hit.
	Site string

	// Secure selects https and LogSSL.
	Secure bool

	// MaxHitSize is the maximum byte length of a hit URL. Zero means DefaultMaxHitSize.
	MaxHitSize int

	// ProtocolKeys are serialized first, in this order. Nil means hit.DefaultProtocolKeys.
	ProtocolKeys []hit.KeyString

	// SplittableKeys may force a new hit boundary. Nil means hit.DefaultSplittableKeys.
	SplittableKeys []hit.KeyString
}

// DefaultConfiguration returns a secure Configuration with default sizes and key lists.
func DefaultConfiguration(site string) Configuration {
	return Configuration{
		Log:            "logp",
		LogSSL:         "logs",
		Domain:         "xiti.com",
		PixelPath:      DefaultPixelPath,
		Site:           site,
		Secure:         true,
		MaxHitSize:     DefaultMaxHitSize,
		ProtocolKeys:   slices.Clone(hit.DefaultProtocolKeys),
		SplittableKeys: slices.Clone(hit.DefaultSplittableKeys),
	}
}

// Builder turns a hit.Snapshot into one or more hit URLs.
//
// It never mutates the Buffer the Snapshot was taken from and performs no I/O.
// A Builder is immutable after New and safe for concurrent use.
type Builder struct {
	cfg              Configuration
	preamble         string
	protocolKeys     []hit.KeyString
	splittableKeys   map[hit.KeyString]struct{}
	multihitID       func() string
	logger           hit.Logger
	contextualLogger hit.ContextualLogger
	metricsCollector hit.MetricsCollector
	tracingCollector hit.TracingCollector
}

// New creates a Builder from the Configuration with optional configuration.
func New(cfg Configuration, options ...Option) (Builder, error) {
	if cfg.Site == "" {
		return Builder{}, ErrEmptySite
	}

	if cfg.Domain == "" {
		return Builder{}, ErrEmptyDomain
	}

	if cfg.PixelPath == "" {
		cfg.PixelPath = DefaultPixelPath
	}

	if cfg.MaxHitSize == 0 {
		cfg.MaxHitSize = DefaultMaxHitSize
	}

	protocolKeys := cfg.ProtocolKeys
	if protocolKeys == nil {
		protocolKeys = hit.DefaultProtocolKeys
	}

	splittableKeys := cfg.SplittableKeys
	if splittableKeys == nil {
		splittableKeys = hit.DefaultSplittableKeys
	}

	b := Builder{
		cfg:            cfg,
		preamble:       buildPreamble(cfg),
		protocolKeys:   slices.Clone(protocolKeys),
		splittableKeys: toKeySet(splittableKeys),
		multihitID:     defaultMultihitID,
	}

	if len(b.preamble)+multihitReserve >= cfg.MaxHitSize {
		return Builder{}, ErrInvalidMaxHitSize
	}

	for _, option := range options {
		if err := option(&b); err != nil {
			return Builder{}, err
		}
	}

	return b, nil
}

// Configuration returns the Configuration the Builder was created with, defaults applied.
func (b Builder) Configuration() Configuration {
	return b.cfg
}

// Preamble returns the required prefix every hit starts with: scheme, collector host, path and site.
func (b Builder) Preamble() string {
	return b.preamble
}

// IsSplittable reports whether the key may force a new hit boundary.
func (b Builder) IsSplittable(key hit.KeyString) bool {
	_, ok := b.splittableKeys[key]
	return ok
}

// Build organizes, serializes and splits the snapshot's parameters into complete hit URLs.
//
// It returns at least one hit. Hits which absorbed an oversized fragment end with the error indicator
// "&mherr=1"; fragments following an absorbed non-splittable one stay in that same hit. When more than one hit results, every hit carries a multihit marker
// "&mh=<index>-<count>-<id>" directly after the preamble.
func (b Builder) Build(ctx context.Context, snapshot hit.Snapshot) []string {
	tracer, ctx := b.startBuildTracing(ctx, snapshot.Len())
	metrics := b.startBuildMetrics(ctx)
	start := time.Now()

	ordered := b.OrganizeParameters(snapshot)
	fragments := b.PrepareQuery(ordered)
	result := b.split(fragments)
	hits := b.assemble(result)

	duration := time.Since(start)

	for _, oversized := range result.oversized {
		b.logWarn(ctx, logMsgOversizedFragment,
			logAttrKey, oversized.key,
			logAttrSize, oversized.size,
			logAttrMaxHitSize, b.cfg.MaxHitSize)
	}

	b.logDebug(ctx, logMsgHitsBuilt,
		logAttrHitCount, len(hits),
		logAttrParameterCount, len(ordered),
		logAttrOversizedCount, len(result.oversized),
		logAttrDurationMS, toMilliseconds(duration))

	metrics.recordSuccess(len(hits), len(result.oversized), duration)
	tracer.finishSuccess(len(hits), len(result.oversized), duration)

	return hits
}

// assemble renders the split drafts into complete URLs.
func (b Builder) assemble(result splitResult) []string {
	count := len(result.drafts)
	marker := ""
	if count > 1 {
		marker = b.multihitMarkerID(count)
	}

	hits := make([]string, 0, count)
	for i, draft := range result.drafts {
		var sb strings.Builder
		sb.Grow(len(b.preamble) + draft.body.Len() + multihitReserve)
		sb.WriteString(b.preamble)

		if count > 1 {
			sb.WriteString("&" + hit.KeyMultihit + "=")
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(count))
			sb.WriteByte('-')
			sb.WriteString(marker)
		}

		sb.WriteString(draft.body.String())

		if draft.oversized {
			sb.WriteString("&" + hit.KeyMultihitError + "=1")
		}

		hits = append(hits, sb.String())
	}

	return hits
}

// multihitMarkerID returns a percent-encoded multihit id which fits into the reserve.
// Longer ids are cut at a character boundary of the raw id, never inside an escape sequence.
func (b Builder) multihitMarkerID(count int) string {
	raw := b.multihitID()
	digits := len(strconv.Itoa(count))
	maxLen := multihitReserve - len("&"+hit.KeyMultihit+"=") - 2*digits - 2

	var id strings.Builder
	for i := 0; i < len(raw); {
		_, size := utf8.DecodeRuneInString(raw[i:])
		encoded := percentEncode(raw[i : i+size])
		if id.Len()+len(encoded) > maxLen {
			break
		}

		id.WriteString(encoded)
		i += size
	}

	return id.String()
}

func buildPreamble(cfg Configuration) string {
	scheme := schemeInsecure
	sub := cfg.Log
	if cfg.Secure {
		scheme = schemeSecure
		sub = cfg.LogSSL
	}

	host := cfg.Domain
	if sub != "" {
		host = sub + "." + cfg.Domain
	}

	return scheme + "://" + host + cfg.PixelPath + "?" + hit.KeySite + "=" + percentEncode(cfg.Site)
}

func defaultMultihitID() string {
	return strconv.FormatUint(uint64(uuid.New().ID()), 10)
}

func toKeySet(keys []hit.KeyString) map[hit.KeyString]struct{} {
	set := make(map[hit.KeyString]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}

	return set
}
