// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math"

	"github.com/pdiddy/groundtruth/pkg/types"
)

type fingerprintSegment struct {
	Start     int                `json:"start"`
	End       int                `json:"end"`
	PageCount int                `json:"page_count"`
	Dominant  types.Category     `json:"dominant"`
	Shares    map[string]float64 `json:"shares"`
}

type fingerprintState struct {
	DeclaredSegments int                  `json:"num_segments"`
	Dominant         types.Category       `json:"dominant_overall"`
	Segments         []fingerprintSegment `json:"segments"`
	Mixture          map[string]float64   `json:"mixture_shares"`
}

// Fingerprint hashes the fields of c that auto-fix can change or that
// define its structure. Shares are rounded to four places so float noise
// from normalisation does not hide a repeated state.
func Fingerprint(c *types.Classification) string {
	st := fingerprintState{
		DeclaredSegments: c.DeclaredSegments,
		Dominant:         c.Dominant,
		Mixture:          make(map[string]float64, len(c.Mixture)),
	}
	for _, seg := range c.Segments {
		fs := fingerprintSegment{
			Start:     seg.StartPage,
			End:       seg.EndPage,
			PageCount: seg.PageCount,
			Dominant:  seg.Dominant,
			Shares:    make(map[string]float64, len(seg.Composition)),
		}
		for _, e := range seg.Composition {
			fs.Shares[string(e.Category)] = round4(e.Share)
		}
		st.Segments = append(st.Segments, fs)
	}
	for _, m := range c.Mixture {
		st.Mixture[string(m.Category)] = round4(m.OverallShare)
	}

	// Map keys marshal sorted and struct fields in declaration order, so the
	// encoding is stable. Marshal cannot fail on these types.
	data, _ := json.Marshal(st)
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
