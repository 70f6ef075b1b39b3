package bot

// Options is the settings bag for one bot instance. Each bot type
// declares its available options with defaults; unknown names coming
// from config files or the command line are flagged, not fatal.
type Options map[string]any

// Resolve merges option layers over the available defaults. The merge
// order is canonical for every bot type: defaults first, then config
// file values, then explicit per-instance options, later layers
// winning. Keys not present in available are collected and returned so
// the caller can warn once at construction time.
func Resolve(available Options, layers ...Options) (Options, []string) {
	resolved := make(Options, len(available))
	for name, def := range available {
		resolved[name] = def
	}

	var unknown []string
	for _, layer := range layers {
		for name, value := range layer {
			if _, ok := available[name]; !ok {
				unknown = append(unknown, name)
				continue
			}
			resolved[name] = value
		}
	}

	return resolved, unknown
}

// Bool reads a boolean option, false when absent or mistyped.
func (o Options) Bool(name string) bool {
	v, _ := o[name].(bool)
	return v
}

// String reads a string option, "" when absent or mistyped.
func (o Options) String(name string) string {
	v, _ := o[name].(string)
	return v
}

// Int reads an integer option, 0 when absent or mistyped.
func (o Options) Int(name string) int {
	v, _ := o[name].(int)
	return v
}
