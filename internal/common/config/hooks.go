package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/armadaproject/loadgate/internal/properties"
)

// CustomHooks are passed to viper's Unmarshal. They replace viper's default hooks, which are included again here.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		MergeModeHookFunc(),
		CategoryHookFunc(),
	)),
}

func MergeModeHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != reflect.TypeOf(properties.Replace) {
			return data, nil
		}
		return properties.ParseMergeMode(data.(string))
	}
}

func CategoryHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(properties.JMeter) {
			return data, nil
		}
		return properties.ParseCategory(data.(string))
	}
}
