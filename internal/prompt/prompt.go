// Package prompt 把会话中的偏好和反馈整理成自然语言，供向量检索和理由生成使用。
package prompt

import (
	"fmt"
	"strings"

	"name-smart-go/internal/model"
)

const sentimentMeaning = "name sentiments"

// DescribePreference 把单个偏好写成一句话。
func DescribePreference(p model.Preference) string {
	switch v := p.(type) {
	case model.FamilyName:
		return fmt.Sprintf("%s: %s. Please suggest a few names which complement the %s.", v.Meaning(), v.Name, v.Meaning())
	case model.SiblingNames:
		return fmt.Sprintf("%s: %s. Please suggest a few names which complement or are similar in style or theme to these %s.",
			v.Meaning(), strings.Join(v.Names, ", "), v.Meaning())
	case model.NamesToAvoid:
		return fmt.Sprintf("%s: %s.", v.Meaning(), strings.Join(v.Names, ", "))
	default:
		return fmt.Sprintf("%s: %s.", p.Meaning(), p.String())
	}
}

// DescribePreferences 每个偏好一行，按 key 排序。
func DescribePreferences(prefs model.PreferenceSet) string {
	lines := make([]string, 0, len(prefs))
	for _, p := range prefs.Sorted() {
		lines = append(lines, DescribePreference(p))
	}
	return strings.Join(lines, "\n")
}

// DescribeSentiment 把一条反馈写成一句话，带上用户给出的原因。
func DescribeSentiment(name string, s model.Sentiment) string {
	reasonClause := ""
	if s.Reason != "" {
		reasonClause = ", because " + s.Reason
	}
	head := fmt.Sprintf("%s: user %s the name of %s%s.", sentimentMeaning, s.Kind, name, reasonClause)
	switch s.Kind {
	case model.Disliked:
		return head + fmt.Sprintf(" Please do not recommend names similar to %s if possible.", name)
	case model.Saved:
		return head + fmt.Sprintf(" Please recommend a few more names similar to %s.", name)
	default:
		return head + fmt.Sprintf(" Please recommend a few names similar to %s if possible.", name)
	}
}

// DescribeSentiments 每条反馈一行，按名字排序。
func DescribeSentiments(sentiments model.SentimentSet) string {
	names := sentiments.Names()
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, DescribeSentiment(name, sentiments[name]))
	}
	return strings.Join(lines, "\n")
}

// SearchText 是用于生成检索向量的文本。
func SearchText(pop model.Population, prefs model.PreferenceSet, sentiments model.SentimentSet) string {
	return fmt.Sprintf(`
Look for a name for a %s newborn, based on the following user preferences and sentiments.

%s
%s
`, pop, DescribePreferences(prefs), DescribeSentiments(sentiments))
}

// UserContext 是理由生成 prompt 中描述用户偏好的段落。
func UserContext(prefs model.PreferenceSet, sentiments model.SentimentSet) string {
	return fmt.Sprintf(`
The user provided preference:
%s
%s
The end of user provided preference
`, DescribePreferences(prefs), DescribeSentiments(sentiments))
}

// NameDescription 是理由生成 prompt 中单个名字的描述段落。
func NameDescription(name string, d *model.NameDescription) string {
	var body []string
	if d != nil {
		if d.Origin != "" || d.ShortMeaning != "" {
			body = append(body, fmt.Sprintf("origin: %s\n short meaning: %s", d.Origin, d.ShortMeaning))
		}
		if d.Description != "" {
			body = append(body, d.Description)
		}
	}
	return fmt.Sprintf("\nThe description of name %q:\n%s\nThe end of the description of name %q\n",
		name, strings.Join(body, "\n"), name)
}

const reasonRequestTemplate = `
Write reasons why the list of names are good candidates for user's newborn, based on the user provided preference, and
based on the descriptions of the names. Please suggest names without asking questions.
Please provide the reasons in a JSON format.

Example response:
{
  "name 1": "1~4 sentences about why this is a good name, based on the information provided by user and based on the description of the name.",
  "name 2": "1~4 sentences about why this is a good name, based on the information provided by user and based on the description of the name.",
  ...
}

The list of names: %s.

%s
`

// ReasonRequest 是请求生成推荐理由的 prompt 主体，名字描述随后按 token 预算追加。
func ReasonRequest(names []string, userContext string) string {
	return fmt.Sprintf(reasonRequestTemplate, strings.Join(names, ", "), userContext)
}

// WithinBudget 在 base 之后逐个追加段落，直到 token 数达到 budget，之后的段落被丢弃。
// 返回拼接结果和实际追加的段落数。
func (t *Tokenizer) WithinBudget(base string, sections []string, budget int) (string, int) {
	var b strings.Builder
	b.WriteString(base)
	tokens := t.Count(base)
	appended := 0
	for _, section := range sections {
		n := t.Count(section)
		if tokens+n >= budget {
			break
		}
		b.WriteString("\n\n")
		b.WriteString(section)
		tokens += n
		appended++
	}
	return b.String(), appended
}
