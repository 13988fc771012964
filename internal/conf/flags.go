package conf

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jingnanl/infant-guard/internal/errors"
)

// flagKeyAnnotation marks a flag with the configuration key it overrides.
const flagKeyAnnotation = "infantguard_config_key"

// AnnotateFlag ties flag name in fs to configuration key. Several commands
// may tie their own flags to the same key; only the running command's flags
// are bound.
func AnnotateFlag(fs *pflag.FlagSet, name, key string) error {
	return fs.SetAnnotation(name, flagKeyAnnotation, []string{key})
}

// BindFlags binds every annotated flag in fs to the global viper instance so
// that explicitly set flags override the config file on the next Load.
func BindFlags(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[flagKeyAnnotation]
		if len(keys) == 0 {
			return
		}
		if err := viper.BindPFlag(keys[0], f); err != nil {
			errs = append(errs, err)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-flags").
			Build()
	}
	return nil
}
