package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/starlance/firecontrol/internal/cache"
)

// ErrUnknownScenario is returned by BuildScenario for an unregistered name.
var ErrUnknownScenario = errors.New("unknown scenario")

const (
	// ScenarioDuel pits the missile ship and its turret against the drone.
	ScenarioDuel = "duel"
	// ScenarioPointDefence leaves the launcher idle; only the turret engages.
	ScenarioPointDefence = "pointdefence"
)

// Entity IDs used by the built-in scenarios.
const (
	ShipID   = "ship"
	TurretID = "turret"
	DroneID  = "drone"
)

// Scenarios lists the names BuildScenario accepts.
func Scenarios() []string {
	return []string{ScenarioDuel, ScenarioPointDefence}
}

// Scenario is a populated world ready to run.
type Scenario struct {
	Name   string
	World  *World
	Ship   *Ship
	Turret *PointDefence // nil when the turret is disabled
	Drone  *Drone

	rec      Recorder
	finished bool
}

// BuildScenario creates the named scenario ticking every step. seed drives
// the turret's firing periods so runs are repeatable.
func BuildScenario(name string, tuning Tuning, rec Recorder, step time.Duration, seed uint64) (*Scenario, error) {
	if name != ScenarioDuel && name != ScenarioPointDefence {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	if step <= 0 {
		return nil, errors.New("scenario step must be positive")
	}
	if rec == nil {
		rec = NopRecorder{}
	}

	tracks := cache.NewTrackCache()
	world := NewWorld(step, tracks)
	world.OnRemove(func(e Entity) {
		if m, ok := e.(*MissileEntity); ok {
			tracks.Remove(m.ID())
		}
	})

	s := &Scenario{Name: name, World: world, rec: rec}

	s.Drone = NewDrone(DroneID, tuning.Drone, tuning.PathSampleEvery)
	tracks.Register(DroneID, s.Drone)

	s.Ship = NewShip(ShipID, tuning.Ship, world, rec, tuning.PathSampleEvery)
	tracks.Register(ShipID, s.Ship)

	drone, err := tracks.Track(DroneID)
	if err != nil {
		return nil, err
	}
	if name == ScenarioDuel {
		s.Ship.SetTarget(drone, 0)
	}

	world.Add(s.Ship)
	if tuning.Turret.Enabled {
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		s.Turret = NewPointDefence(TurretID, tuning.Turret, s.Ship.Body(), rec, rng)
		s.Turret.SetTarget(drone)
		world.Add(s.Turret)
	}
	world.Add(s.Drone)

	tracks.Refresh()
	return s, nil
}

// Run advances the scenario by duration of simulated time.
func (s *Scenario) Run(ctx context.Context, duration time.Duration) error {
	return s.World.Run(ctx, duration)
}

// Finish reports the flight paths of everything still in the world. Paths
// with fewer than two points are skipped. Later calls do nothing.
func (s *Scenario) Finish() {
	if s.finished {
		return
	}
	s.finished = true

	reportPath(s.rec, s.Ship.Path())
	reportPath(s.rec, s.Drone.Path())
	for _, e := range s.World.Entities() {
		if m, ok := e.(*MissileEntity); ok {
			m.Flush()
		}
	}
}
