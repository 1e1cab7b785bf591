package imaging

// Profile is one named target variant: how far to shrink, how many
// kilobytes to aim for, the filename suffix, and whether to composite the
// watermark overlay.
type Profile struct {
	Name string
	// MaxDimension bounds the orientation-matching axis in pixels.
	// Zero means pass through at full resolution.
	MaxDimension int
	// ByteBudget is the target output size in kilobytes, forwarded to
	// the conversion tool's encoder as a hint. It is not verified.
	ByteBudget int
	Suffix     string
	Watermark  bool
}

// Catalog maps profile names to their target constraints and source
// formats to their extra conversion parameters. Immutable after
// construction so it can be shared across concurrent asset runs.
type Catalog struct {
	profiles map[string]Profile
	defaults []string
	formats  map[string][]string
}

// NewCatalog builds a catalog from explicit tables. The defaults slice
// applies to every conversion regardless of source format.
func NewCatalog(profiles []Profile, defaults []string, formats map[string][]string) *Catalog {
	byName := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}
	return &Catalog{
		profiles: byName,
		defaults: defaults,
		formats:  formats,
	}
}

// DefaultCatalog returns the production profile set and format table.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]Profile{
			{Name: "smallThumb", MaxDimension: 300, ByteBudget: 100, Suffix: "-st"},
			{Name: "largeThumb", MaxDimension: 600, ByteBudget: 500, Suffix: "-lt"},
			{Name: "smallPreview", MaxDimension: 1024, ByteBudget: 800, Suffix: "-sp"},
			{Name: "smallWatermarkedPreview", MaxDimension: 1024, ByteBudget: 800, Suffix: "-wmsp", Watermark: true},
			{Name: "originalPreview", ByteBudget: 1024, Suffix: "-op"},
		},
		[]string{"-strip", "-interlace", "Plane"},
		map[string][]string{
			"GIF": {"-flatten", "-background", "grey"},
			"PSD": {"-trim", "-flatten", "-background", "grey"},
			"PS":  {"-resize", "2048x", "-density", "600", "-flatten", "-background", "grey"},
			"EPS": {"-resize", "2048x", "-density", "600", "-colorspace", "sRGB"},
			"EPT": {"-resize", "2048x", "-density", "600", "-colorspace", "sRGB"},
		},
	)
}

// Resolve looks up a profile by exact name. A missing name is not an
// error; callers skip the profile and move on.
func (c *Catalog) Resolve(name string) (Profile, bool) {
	p, ok := c.profiles[name]
	return p, ok
}

// FormatOptions returns the universal defaults followed by the extra
// parameters for the given source format tag. Unknown formats get the
// defaults only. The returned slice is always a fresh copy.
func (c *Catalog) FormatOptions(format string) []string {
	opts := make([]string, 0, len(c.defaults)+8)
	opts = append(opts, c.defaults...)
	opts = append(opts, c.formats[format]...)
	return opts
}

// Profiles returns the known profile names, for diagnostics.
func (c *Catalog) Profiles() []string {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	return names
}
