package pipeline

import "regexp"

var yamlBlock = regexp.MustCompile("(?s)```yaml\n(.*?)```")

// ExtractYAML returns the body of the first fenced yaml block in text
func ExtractYAML(text string) (string, error) {
	m := yamlBlock.FindStringSubmatch(text)
	if m == nil {
		return "", ErrNoYAMLBlock
	}
	return m[1], nil
}
