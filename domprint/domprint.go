// Package domprint computes structural SimHash fingerprints of HTML pages so
// two renderings of the same form can be recognised even when their text
// differs.
package domprint

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/net/html"
)

// Print is a 64-bit SimHash.
type Print uint64

// DefaultThreshold is the Hamming distance under which two pages count as
// the same structure.
const DefaultThreshold = 3

// Distance returns the Hamming distance between two prints.
func Distance(a, b Print) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Similar reports whether a and b are within threshold bits of each other.
// A zero print (empty document) is never similar to anything.
func Similar(a, b Print, threshold int) bool {
	if a == 0 || b == 0 {
		return false
	}
	return Distance(a, b) <= threshold
}

// Text fingerprints whitespace-separated tokens.
func Text(text string) Print {
	return hashTokens(strings.Fields(text))
}

// Of fingerprints the element structure of a document: tag names in
// document order, with form controls qualified by their name attribute, as
// 3-token shingles. Text content and other attributes are ignored.
func Of(document string) Print {
	tokens := structure(document)
	if len(tokens) == 0 {
		return 0
	}
	if sh := shingles(tokens, 3); len(sh) > 0 {
		return hashTokens(sh)
	}
	return hashTokens(tokens)
}

func hashTokens(tokens []string) Print {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var p Print
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			p |= 1 << uint(i)
		}
	}
	return p
}

var formControls = map[string]bool{
	"input":    true,
	"select":   true,
	"textarea": true,
	"button":   true,
	"form":     true,
}

func structure(document string) []string {
	z := html.NewTokenizer(strings.NewReader(document))
	var tokens []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tokens
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if formControls[tag] && hasAttr {
				for {
					key, val, more := z.TagAttr()
					if string(key) == "name" || (tag == "form" && string(key) == "id") {
						tag += ":" + string(val)
						break
					}
					if !more {
						break
					}
				}
			}
			tokens = append(tokens, tag)
		}
	}
}

func shingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		out = append(out, strings.Join(tokens[i:i+n], "_"))
	}
	return out
}
