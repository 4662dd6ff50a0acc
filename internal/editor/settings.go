package editor

// Settings maps editor option names to values
type Settings map[string]any

// Clone returns a deep copy of s
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a new mapping with patch deep-merged over s. Nested
// mappings are merged key by key; any other value in patch replaces the
// one in s.
func (s Settings) Merge(patch Settings) Settings {
	out := s.Clone()
	if out == nil {
		out = make(Settings, len(patch))
	}
	for k, v := range patch {
		out[k] = mergeValue(out[k], v)
	}
	return out
}

func mergeValue(base, patch any) any {
	pm, ok := asMap(patch)
	if !ok {
		return cloneValue(patch)
	}
	bm, ok := asMap(base)
	if !ok {
		return cloneValue(patch)
	}
	return map[string]any(Settings(bm).Merge(Settings(pm)))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Settings(t).Clone())
	case Settings:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Settings:
		return t, true
	default:
		return nil, false
	}
}
