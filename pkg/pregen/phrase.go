package pregen

import (
	"strconv"
	"strings"
)

// Phrase builds the spoken text for a narration entry: "one car left near"
// for a single object, "3 cars left above far" otherwise. An empty vertical
// label is left out.
func Phrase(count int, class, horizontal, vertical, distance string) string {
	words := make([]string, 0, 5)
	if count == 1 {
		words = append(words, "one", class)
	} else {
		words = append(words, strconv.Itoa(count), Plural(class))
	}
	words = append(words, horizontal)
	if vertical != "" {
		words = append(words, vertical)
	}
	words = append(words, distance)
	return strings.Join(words, " ")
}

var irregular = map[string]string{
	"person": "people",
	"man":    "men",
	"woman":  "women",
	"child":  "children",
	"mouse":  "mice",
	"sheep":  "sheep",
	"fish":   "fish",
	"knife":  "knives",
	"shelf":  "shelves",
}

// Plural returns the English plural of the last word of a class label
func Plural(label string) string {
	head, word := "", label
	if i := strings.LastIndexByte(label, ' '); i >= 0 {
		head, word = label[:i+1], label[i+1:]
	}
	if word == "" {
		return label
	}

	if p, ok := irregular[strings.ToLower(word)]; ok {
		return head + matchCase(word, p)
	}

	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "z"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return head + word + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return head + word[:len(word)-1] + "ies"
	}
	return head + word + "s"
}

func matchCase(original, plural string) string {
	if original != "" && original[0] >= 'A' && original[0] <= 'Z' {
		return strings.ToUpper(plural[:1]) + plural[1:]
	}
	return plural
}
