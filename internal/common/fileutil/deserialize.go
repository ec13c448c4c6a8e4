package fileutil

import (
	"os"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/yaml"
)

// BindJsonOrYaml decodes the JSON or YAML document at filePath into obj.
func BindJsonOrYaml(filePath string, obj interface{}) error {
	reader, err := os.Open(filePath)
	if err != nil {
		return errors.Errorf("failed opening file %s due to %s", filePath, err)
	}
	defer CloseResource(filePath, reader)
	err = yaml.NewYAMLOrJSONDecoder(reader, 128).Decode(obj)
	if err != nil {
		return errors.Errorf("failed to parse file %s because: %v", filePath, err)
	}
	return nil
}
