package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PrefKey 是偏好在 URL、请求体和 Redis hash 中使用的稳定键。
type PrefKey string

const (
	KeyGender       PrefKey = "gender"
	KeyFamilyName   PrefKey = "family_name"
	KeyMotherName   PrefKey = "mother_name"
	KeyFatherName   PrefKey = "father_name"
	KeySiblingNames PrefKey = "sibling_names"
	KeyNamesToAvoid PrefKey = "names_to_avoid"
	KeyOther        PrefKey = "other"
)

// Preference 是偏好的和类型，变体只能是本包中定义的那几种。
type Preference interface {
	Key() PrefKey
	// Meaning 是该偏好的英文含义，用于拼接 prompt
	Meaning() string
	// String 是写入存储用的扁平字符串，列表类偏好为 JSON 数组
	String() string
	// Native 返回可直接 JSON 序列化的值
	Native() any
	isPreference()
}

type GenderPref struct{ Population Population }

type FamilyName struct{ Name string }

type MotherName struct{ Name string }

type FatherName struct{ Name string }

type SiblingNames struct{ Names []string }

type NamesToAvoid struct{ Names []string }

type OtherPref struct{ Text string }

// TraitChoice 是对某个特征的二选一，例如 style_option=Classic。
type TraitChoice struct {
	Trait Trait
	Pole  string
}

func (GenderPref) Key() PrefKey { return KeyGender }
func (GenderPref) Meaning() string { return "gender" }
func (p GenderPref) String() string { return string(p.Population) }
func (p GenderPref) Native() any { return string(p.Population) }
func (GenderPref) isPreference() {}
func (FamilyName) Key() PrefKey { return KeyFamilyName }
func (FamilyName) Meaning() string { return "family name" }
func (p FamilyName) String() string { return p.Name }
func (p FamilyName) Native() any { return p.Name }
func (FamilyName) isPreference() {}
func (MotherName) Key() PrefKey { return KeyMotherName }
func (MotherName) Meaning() string { return "mother's name" }
func (p MotherName) String() string { return p.Name }
func (p MotherName) Native() any { return p.Name }
func (MotherName) isPreference() {}
func (FatherName) Key() PrefKey { return KeyFatherName }
func (FatherName) Meaning() string { return "father's name" }
func (p FatherName) String() string { return p.Name }
func (p FatherName) Native() any { return p.Name }
func (FatherName) isPreference() {}
func (SiblingNames) Key() PrefKey { return KeySiblingNames }
func (SiblingNames) Meaning() string { return "siblings' name" }
func (p SiblingNames) String() string { return jsonList(p.Names) }
func (p SiblingNames) Native() any { return append([]string(nil), p.Names...) }
func (SiblingNames) isPreference() {}
func (NamesToAvoid) Key() PrefKey { return KeyNamesToAvoid }
func (NamesToAvoid) Meaning() string { return "names to avoid" }
func (p NamesToAvoid) String() string { return jsonList(p.Names) }
func (p NamesToAvoid) Native() any { return append([]string(nil), p.Names...) }
func (NamesToAvoid) isPreference() {}
func (OtherPref) Key() PrefKey { return KeyOther }
func (OtherPref) Meaning() string { return "other preferences" }
func (p OtherPref) String() string { return p.Text }
func (p OtherPref) Native() any { return p.Text }
func (OtherPref) isPreference() {}
func (p TraitChoice) Key() PrefKey { return PrefKey(p.Trait.Key) }
func (p TraitChoice) Meaning() string { return p.Trait.Meaning }
func (p TraitChoice) String() string { return p.Pole }
func (p TraitChoice) Native() any { return p.Pole }
func (TraitChoice) isPreference() {}

func jsonList(names []string) string {
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(names)
	return string(b)
}

// ParsePreference 从扁平字符串还原一个偏好。值为空时返回 (nil, nil)，表示没有设置该偏好。
func ParsePreference(key PrefKey, flat string) (Preference, error) {
	if strings.TrimSpace(flat) == "" {
		return nil, nil
	}
	switch key {
	case KeyGender:
		pop, err := ParsePopulation(flat)
		if err != nil {
			return nil, fmt.Errorf("%w: gender: %v", ErrInvalidPreference, err)
		}
		if pop == "" {
			return nil, nil
		}
		return GenderPref{Population: pop}, nil
	case KeyFamilyName, KeyMotherName, KeyFatherName:
		name := CanonicalName(flat)
		if name == "" {
			return nil, nil
		}
		switch key {
		case KeyFamilyName:
			return FamilyName{Name: name}, nil
		case KeyMotherName:
			return MotherName{Name: name}, nil
		}
		return FatherName{Name: name}, nil
	case KeySiblingNames, KeyNamesToAvoid:
		var raw []string
		if err := json.Unmarshal([]byte(flat), &raw); err != nil {
			return nil, fmt.Errorf("%w: %s must be a JSON array of names: %v", ErrInvalidPreference, key, err)
		}
		names := CanonicalNames(raw)
		if len(names) == 0 {
			return nil, nil
		}
		if key == KeySiblingNames {
			return SiblingNames{Names: names}, nil
		}
		return NamesToAvoid{Names: names}, nil
	case KeyOther:
		return OtherPref{Text: strings.TrimSpace(flat)}, nil
	}

	trait, ok := TraitByKey(string(key))
	if !ok || !trait.IsChoosable() {
		return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidPreference, key)
	}
	pole, _, ok := trait.Pole(flat)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects %q or %q, got %q",
			ErrInvalidPreference, key, trait.First, trait.Second, flat)
	}
	return TraitChoice{Trait: trait, Pole: pole}, nil
}

// PreferenceSet 中每个 key 至多一个值。
type PreferenceSet map[PrefKey]Preference

// ParsePreferences 解析一组扁平偏好，遇到第一个非法值即返回错误。
func ParsePreferences(flat map[string]string) (PreferenceSet, error) {
	set := make(PreferenceSet, len(flat))
	for k, v := range flat {
		p, err := ParsePreference(PrefKey(k), v)
		if err != nil {
			return nil, err
		}
		if p != nil {
			set[p.Key()] = p
		}
	}
	return set, nil
}

// Flat 转成写入 Redis hash 的形式。
func (s PreferenceSet) Flat() map[string]string {
	out := make(map[string]string, len(s))
	for k, p := range s {
		out[string(k)] = p.String()
	}
	return out
}

// Native 转成 HTTP 响应中使用的形式。
func (s PreferenceSet) Native() map[string]any {
	out := make(map[string]any, len(s))
	for k, p := range s {
		out[string(k)] = p.Native()
	}
	return out
}

// Sorted 按 key 排序返回全部偏好，保证 prompt 文本稳定。
func (s PreferenceSet) Sorted() []Preference {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := make([]Preference, 0, len(keys))
	for _, k := range keys {
		out = append(out, s[PrefKey(k)])
	}
	return out
}

func (s PreferenceSet) Population() Population {
	if p, ok := s[KeyGender].(GenderPref); ok {
		return p.Population
	}
	return ""
}

func (s PreferenceSet) Siblings() []string {
	if p, ok := s[KeySiblingNames].(SiblingNames); ok {
		return p.Names
	}
	return nil
}

func (s PreferenceSet) NamesToAvoid() []string {
	if p, ok := s[KeyNamesToAvoid].(NamesToAvoid); ok {
		return p.Names
	}
	return nil
}

func (s PreferenceSet) Other() string {
	if p, ok := s[KeyOther].(OtherPref); ok {
		return p.Text
	}
	return ""
}

// ParentNames 返回母亲和父亲的名字（已设置的那些）。
func (s PreferenceSet) ParentNames() []string {
	var out []string
	if p, ok := s[KeyMotherName].(MotherName); ok {
		out = append(out, p.Name)
	}
	if p, ok := s[KeyFatherName].(FatherName); ok {
		out = append(out, p.Name)
	}
	return out
}

// TraitChoices 返回 trait key -> 所选一极。
func (s PreferenceSet) TraitChoices() map[string]string {
	out := make(map[string]string)
	for _, p := range s {
		if tc, ok := p.(TraitChoice); ok {
			out[tc.Trait.Key] = tc.Pole
		}
	}
	return out
}
