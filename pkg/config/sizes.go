package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"epub2pdf/pkg/types"
	"epub2pdf/pkg/utils"
)

// namedSizes maps case-insensitive size names to pixel dimensions
var namedSizes = map[string]types.Dimensions{
	"a4":  {Width: 1240, Height: 1754},
	"a3":  {Width: 1754, Height: 2480},
	"a5":  {Width: 874, Height: 1240},
	"hd":  {Width: 1280, Height: 720},
	"fhd": {Width: 1920, Height: 1080},
}

var dimensionsRe = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ResolveSize turns a resize spec into concrete dimensions. Accepts the
// named sizes (A4, A3, A5, HD, FHD, case-insensitive) or a literal
// WIDTHxHEIGHT pair. Anything else is a configuration error raised
// before any extraction work begins.
func ResolveSize(spec string) (types.Dimensions, error) {
	if dims, ok := namedSizes[strings.ToLower(spec)]; ok {
		return dims, nil
	}

	if m := dimensionsRe.FindStringSubmatch(spec); m != nil {
		width, err := strconv.Atoi(m[1])
		if err != nil {
			return types.Dimensions{}, utils.NewConfigError(utils.ReasonInvalidResizeSpec,
				fmt.Sprintf("invalid resize width %q", m[1]), err)
		}
		height, err := strconv.Atoi(m[2])
		if err != nil {
			return types.Dimensions{}, utils.NewConfigError(utils.ReasonInvalidResizeSpec,
				fmt.Sprintf("invalid resize height %q", m[2]), err)
		}
		if width == 0 || height == 0 {
			return types.Dimensions{}, utils.NewConfigError(utils.ReasonInvalidResizeSpec,
				fmt.Sprintf("resize dimensions must be positive: %q", spec), nil)
		}
		return types.Dimensions{Width: width, Height: height}, nil
	}

	return types.Dimensions{}, utils.NewConfigError(utils.ReasonInvalidResizeSpec,
		fmt.Sprintf("unknown resize spec %q (expected A4, A3, A5, HD, FHD or WIDTHxHEIGHT)", spec), nil)
}
