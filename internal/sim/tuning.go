package sim

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/control"
	"github.com/starlance/firecontrol/internal/firing"
	"github.com/starlance/firecontrol/internal/guidance"
	"github.com/starlance/firecontrol/internal/lock"
)

// Tuning is everything a scenario can be tuned with. It decodes from the
// "tuning" config section via config.LoadTuning.
type Tuning struct {
	Ship            ShipTuning   `mapstructure:"ship" json:"ship"`
	Turret          TurretTuning `mapstructure:"turret" json:"turret"`
	Drone           DroneTuning  `mapstructure:"drone" json:"drone"`
	PathSampleEvery int          `mapstructure:"pathSampleEvery" json:"pathSampleEvery"`
}

// ShipTuning tunes the launching ship.
type ShipTuning struct {
	Position  r3.Vec            `mapstructure:"position" json:"position"`
	Body      BodyConfig        `mapstructure:"body" json:"body"`
	Locker    lock.Config       `mapstructure:"locker" json:"locker"`
	MaxAngles r3.Vec            `mapstructure:"maxAngles" json:"maxAngles"`
	PID       control.PIDConfig `mapstructure:"pid" json:"pid"`
	Launcher  LauncherConfig    `mapstructure:"launcher" json:"launcher"`
}

// LauncherConfig tunes a missile launcher and the missiles it spawns.
type LauncherConfig struct {
	Repeater     firing.RepeaterConfig  `mapstructure:"repeater" json:"repeater"`
	Missile      guidance.MissileConfig `mapstructure:"missile" json:"missile"`
	Body         BodyConfig             `mapstructure:"body" json:"body"`
	LaunchOffset float64                `mapstructure:"launchOffset" json:"launchOffset"`
	LaunchSpeed  float64                `mapstructure:"launchSpeed" json:"launchSpeed"`
	MaxMissiles  int                    `mapstructure:"maxMissiles" json:"maxMissiles"`
}

// TurretTuning tunes the point-defence turret mounted on the ship.
type TurretTuning struct {
	Enabled         bool                            `mapstructure:"enabled" json:"enabled"`
	MountOffset     r3.Vec                          `mapstructure:"mountOffset" json:"mountOffset"`
	Controller      guidance.TurretControllerConfig `mapstructure:"controller" json:"controller"`
	Repeater        firing.RepeaterConfig           `mapstructure:"repeater" json:"repeater"`
	ProjectileSpeed float64                         `mapstructure:"projectileSpeed" json:"projectileSpeed"`
}

// DroneTuning tunes the patrolling target.
type DroneTuning struct {
	Position r3.Vec               `mapstructure:"position" json:"position"`
	Body     BodyConfig           `mapstructure:"body" json:"body"`
	Patrol   control.PatrolConfig `mapstructure:"patrol" json:"patrol"`
	PID      control.PIDConfig    `mapstructure:"pid" json:"pid"`
}

// DefaultTuning returns a duel where the drone starts dead ahead of the ship
// and flies away before weaving.
func DefaultTuning() Tuning {
	missileBody := DefaultBodyConfig()
	missileBody.Drag = 1.5

	droneBody := DefaultBodyConfig()
	droneBody.MovementForces = r3.Vec{X: 100, Y: 100, Z: 300}

	shipRepeater := firing.DefaultRepeaterConfig()
	shipRepeater.Interval = 2 * time.Second

	turretController := guidance.TurretControllerConfig{
		Gimbal:                 guidance.GimbalConfig{Rate: 90, MinPitch: -10, MaxPitch: 85},
		MaxAngles:              r3.Vec{X: 45, Y: 45, Z: 45},
		PID:                    control.Uniform(control.Gains{Proportional: 0.1, Derivative: 0.005}),
		Firing:                 firing.DefaultTurretConfig(),
		NoTargetReturnToCenter: true,
		AssistAngle:            2,
	}
	turretController.Firing.MinFiringInterval = 200 * time.Millisecond
	turretController.Firing.MaxFiringInterval = 600 * time.Millisecond

	return Tuning{
		Ship: ShipTuning{
			Body:      DefaultBodyConfig(),
			Locker:    lock.DefaultConfig(),
			MaxAngles: r3.Vec{X: 30, Y: 30, Z: 30},
			PID:       control.Uniform(control.Gains{Proportional: 0.1, Derivative: 0.02}),
			Launcher: LauncherConfig{
				Repeater: shipRepeater,
				Missile: guidance.MissileConfig{
					Guidance: guidance.DefaultControllerConfig(),
					Locker: lock.Config{
						LockingTime:    time.Second,
						LockingAngle:   45,
						LockingRange:   2000,
						LockingEnabled: true,
					},
					Detonator: guidance.DetonatorConfig{
						DetonatingDuration:    500 * time.Millisecond,
						DetonateAfterLifetime: true,
						Lifetime:              10 * time.Second,
					},
					Proximity:      guidance.ProximityConfig{Mode: guidance.OnDistanceIncrease, Radius: 15},
					NoLockLifetime: 2 * time.Second,
				},
				Body:         missileBody,
				LaunchOffset: 10,
				LaunchSpeed:  50,
				MaxMissiles:  3,
			},
		},
		Turret: TurretTuning{
			Enabled:         true,
			MountOffset:     r3.Vec{Y: 5},
			Controller:      turretController,
			Repeater:        firing.DefaultRepeaterConfig(),
			ProjectileSpeed: 400,
		},
		Drone: DroneTuning{
			Position: r3.Vec{Z: 600},
			Body:     droneBody,
			Patrol: control.PatrolConfig{
				Waypoints: []r3.Vec{
					{Z: 900},
					{X: 80, Y: 40, Z: 800},
					{X: -80, Y: -40, Z: 800},
				},
				ArrivalDistance: 40,
				Throttle:        0.4,
				MaxAngles:       r3.Vec{X: 30, Y: 30, Z: 30},
			},
			PID: control.Uniform(control.Gains{Proportional: 0.05, Derivative: 0.01}),
		},
		PathSampleEvery: 5,
	}
}
