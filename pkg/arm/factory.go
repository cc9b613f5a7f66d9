package arm

import (
	"time"

	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Constructor builds the component for one whitelisted arm entry.
type Constructor func(name string, period time.Duration) component.Component

// Factory maps recognized (name, type) pairs to constructors. Entries that
// are not in the table are left to the console's default configuration.
type Factory struct {
	constructors map[config.ArmKey]Constructor
	period       time.Duration
	logger       *zap.Logger
}

func NewFactory(period time.Duration, logger *zap.Logger) *Factory {
	return &Factory{
		constructors: make(map[config.ArmKey]Constructor),
		period:       period,
		logger:       logger,
	}
}

// DefaultFactory returns the table of arms this console specializes.
func DefaultFactory(logger *zap.Logger) *Factory {
	factory := NewFactory(IOPeriod, logger)
	derived := func(name string, period time.Duration) component.Component {
		return NewDerivedPSM(name, period)
	}
	factory.Register(config.ArmKey{Name: "PSM1", Type: TypeDerivedPSM}, derived)
	factory.Register(config.ArmKey{Name: "PSM2", Type: TypeDerivedPSM}, derived)
	return factory
}

func (f *Factory) Register(key config.ArmKey, ctor Constructor) {
	f.constructors[key] = ctor
}

// Build constructs and registers a component for every whitelisted entry,
// in document order.
func (f *Factory) Build(specs []config.ArmSpec, registry *component.Registry) ([]component.Component, error) {
	built := []component.Component{}
	for _, spec := range specs {
		ctor, ok := f.constructors[spec.Key()]
		if !ok {
			f.logger.Debug("Arm left to console defaults", zap.Stringer("arm", spec.Key()))
			continue
		}
		arm := ctor(spec.Name, f.period)
		if err := registry.Register(arm); err != nil {
			return built, errors.Wrapf(err, "registering arm %s", spec.Key())
		}
		f.logger.Info("Specialized arm created",
			zap.Stringer("arm", spec.Key()),
			zap.Duration("period", f.period))
		built = append(built, arm)
	}
	return built, nil
}
