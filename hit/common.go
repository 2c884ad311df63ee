package hit

// Reserved protocol keys used by the builder itself. Callers should not write them.
const (
	// KeySite carries the site id inside the required preamble of every hit.
	KeySite = "s"

	// KeyMultihit marks each hit of a multihit as "<index>-<count>-<id>".
	KeyMultihit = "mh"

	// KeyMultihitError tags a hit which exceeds the intended size and could not be split.
	KeyMultihitError = "mherr"
)

// DefaultSplittableKeys lists the keys which may force a new hit boundary when their value alone
// would overflow the current hit.
var DefaultSplittableKeys = []string{"ati", "atc", "pdtl", "stc", "events", "context"}

// DefaultProtocolKeys lists the protocol-mandated keys which are always serialized first, in this order.
var DefaultProtocolKeys = []string{"vtag", "ptag", "lng", "mfmd", "idclient", "ts"}

// KeyString is a type alias for parameter keys.
type KeyString = string
