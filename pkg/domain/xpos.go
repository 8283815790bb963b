package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// xposChromOffset packs a chromosome index and position into a single
// sortable integer: xpos = index*1e9 + pos.
const xposChromOffset int64 = 1_000_000_000

var chromIndex = map[string]int64{
	"1": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8,
	"9": 9, "10": 10, "11": 11, "12": 12, "13": 13, "14": 14, "15": 15,
	"16": 16, "17": 17, "18": 18, "19": 19, "20": 20, "21": 21, "22": 22,
	"X": 23, "Y": 24, "M": 25,
}

var chromName = func() map[int64]string {
	out := make(map[int64]string, len(chromIndex))
	for name, idx := range chromIndex {
		out[idx] = name
	}
	return out
}()

// XPos encodes a chromosome name and 1-based position into a packed coordinate.
// A leading "chr" prefix and "MT" are accepted.
func XPos(chrom string, pos int) (int64, error) {
	name := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(chrom)), "CHR")
	if name == "MT" {
		name = "M"
	}
	idx, ok := chromIndex[name]
	if !ok {
		return 0, fmt.Errorf("unknown chromosome %q", chrom)
	}
	if pos <= 0 || int64(pos) >= xposChromOffset {
		return 0, fmt.Errorf("position %d out of range for chromosome %s", pos, name)
	}
	return idx*xposChromOffset + int64(pos), nil
}

// ChromPos decodes a packed coordinate back into chromosome name and position.
func ChromPos(xpos int64) (string, int, error) {
	idx := xpos / xposChromOffset
	pos := xpos % xposChromOffset
	name, ok := chromName[idx]
	if !ok || pos == 0 {
		return "", 0, fmt.Errorf("invalid xpos %d", xpos)
	}
	return name, int(pos), nil
}

// VariantKey builds the composite identity for a variant: "xpos-ref-alt".
func VariantKey(xpos int64, ref, alt string) string {
	return strconv.FormatInt(xpos, 10) + "-" + ref + "-" + alt
}

// VariantKey returns the composite identity of the saved variant.
func (v SavedVariant) VariantKey() string {
	return VariantKey(v.XPos, v.Ref, v.Alt)
}
