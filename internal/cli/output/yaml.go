package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}
