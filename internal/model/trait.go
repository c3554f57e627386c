package model

import "strings"

// Trait 是一个二元对立的名字特征，例如 Classic/Modern。
type Trait struct {
	Key     string
	First   string
	Second  string
	Meaning string
}

// Traits 是评分语料中的全部 14 个特征，顺序与语料一致。
var Traits = []Trait{
	{Key: "overall_rating", First: "A Good Name", Second: "A Bad Name", Meaning: "overall impression"},
	{Key: "gender_option", First: "Masculine", Second: "Feminine", Meaning: "gender impression"},
	{Key: "style_option", First: "Classic", Second: "Modern", Meaning: "style of name"},
	{Key: "age_option", First: "Mature", Second: "Youthful", Meaning: "age impression"},
	{Key: "formality_option", First: "Formal", Second: "Informal", Meaning: "formality"},
	{Key: "class_option", First: "Upper Class", Second: "Common", Meaning: "social class impression"},
	{Key: "environment_option", First: "Urban", Second: "Natural", Meaning: "environment impression"},
	{Key: "moral_option", First: "Wholesome", Second: "Devious", Meaning: "moral impression"},
	{Key: "strength_option", First: "Strong", Second: "Delicate", Meaning: "strength"},
	{Key: "texture_option", First: "Refined", Second: "Rough", Meaning: "texture"},
	{Key: "creativity_option", First: "Strange", Second: "Boring", Meaning: "creativity"},
	{Key: "complexity_option", First: "Simple", Second: "Complex", Meaning: "complexity"},
	{Key: "tone_option", First: "Serious", Second: "Comedic", Meaning: "tone"},
	{Key: "intellectual_option", First: "Nerdy", Second: "Unintellectual", Meaning: "intellectual impression"},
}

// 用户可以选择的特征不包括总体评分和性别倾向
var choosableTraits = map[string]bool{
	"style_option": true, "age_option": true, "formality_option": true, "class_option": true,
	"environment_option": true, "moral_option": true, "strength_option": true, "texture_option": true,
	"creativity_option": true, "complexity_option": true, "tone_option": true, "intellectual_option": true,
}

// TraitByKey 按 wire key 查找特征。
func TraitByKey(key string) (Trait, bool) {
	for _, t := range Traits {
		if t.Key == key {
			return t, true
		}
	}
	return Trait{}, false
}

// IsChoosable 表示该特征能否作为用户偏好出现。
func (t Trait) IsChoosable() bool {
	return choosableTraits[t.Key]
}

// Pole 把用户输入的选项匹配到本特征的一极（大小写不敏感）。
func (t Trait) Pole(raw string) (pole string, second bool, ok bool) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(s, t.First):
		return t.First, false, true
	case strings.EqualFold(s, t.Second):
		return t.Second, true, true
	}
	return "", false, false
}
