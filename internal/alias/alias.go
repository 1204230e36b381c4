package alias

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// 形容词表（颜色）
var adjectives = []string{
	"Red", "Blue", "Green", "Gold", "Silver", "Purple", "Orange", "Crimson",
	"Scarlet", "Gray", "Black", "White", "Coral", "Teal", "Navy", "Amber",
}

// 名词表（吉祥物主题的动物）
var nouns = []string{
	"Buckeye", "Cardinal", "Falcon", "Eagle", "Hawk", "Bear", "Wolf", "Lion",
	"Tiger", "Panther", "Fox", "Owl", "Raven", "Phoenix", "Dragon", "Sparrow",
}

// Generate 生成一个随机取餐口令，例如 "Blue Falcon 42"。
// 口令不保证唯一，仅用于当面核对身份。
func Generate() string {
	adjective := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	number := rand.Intn(99) + 1

	return fmt.Sprintf("%s %s %d", adjective, noun, number)
}

// IsValid 校验口令格式：三个空格分隔的部分，前两个来自词表，数字在 1-99 之间
func IsValid(alias string) bool {
	parts := strings.Split(alias, " ")
	if len(parts) != 3 {
		return false
	}

	number, err := strconv.Atoi(parts[2])
	if err != nil {
		return false
	}

	return contains(adjectives, parts[0]) &&
		contains(nouns, parts[1]) &&
		number >= 1 && number <= 99
}

func contains(words []string, w string) bool {
	for _, word := range words {
		if word == w {
			return true
		}
	}
	return false
}
