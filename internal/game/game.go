package game

import (
	"fmt"
	"image/color"
	"math/rand"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"

	"entity-forge/ecs"
)

const fixedDelta = 1.0 / 60.0

// Game drives an ECS registry through ebiten's update/draw loop.
type Game struct {
	cfg Config
	log *zap.Logger
	rng *rand.Rand

	reg      *ecs.Registry
	moving   *ecs.View2[Transform, Velocity]
	drawable *ecs.View2[Transform, Sprite]
	frozen   *ecs.Observer

	frame uint64
}

// New builds the demo world: a registry populated with drifting sprites, the
// views the frame loop iterates, and an observer reporting freshly frozen
// entities.
func New(cfg Config, log *zap.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg, err := ecs.NewRegistryWithConfig(cfg.World)
	if err != nil {
		return nil, err
	}

	g := &Game{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		reg: reg,
	}

	g.spawnSprites()

	g.moving = ecs.NewView2[Transform, Velocity](reg).
		Exclude(ecs.StorageOf[Frozen](reg))
	g.drawable = ecs.NewView2[Transform, Sprite](reg)
	g.frozen = ecs.NewObserver(reg, ecs.OnEntered[Frozen]())

	log.Info("world ready",
		zap.Int("entities", reg.Alive()),
		zap.Int("spawned", cfg.SpawnCount),
	)
	return g, nil
}

func (g *Game) spawnSprites() {
	for i := 0; i < g.cfg.SpawnCount; i++ {
		e := g.reg.Create()

		tr := NewTransform(
			g.rng.Float64()*float64(g.cfg.Width),
			g.rng.Float64()*float64(g.cfg.Height),
		)
		if _, err := ecs.Emplace(g.reg, e, tr); err != nil {
			g.log.Error("spawn failed", zap.Error(err))
			continue
		}

		_, _ = ecs.Emplace(g.reg, e, Velocity{Linear: Vec2{
			X: (g.rng.Float64() - 0.5) * 200,
			Y: (g.rng.Float64() - 0.5) * 200,
		}})
		_, _ = ecs.Emplace(g.reg, e, Sprite{
			Size: 2 + g.rng.Float64()*4,
			Color: color.RGBA{
				R: uint8(100 + g.rng.Intn(156)),
				G: uint8(100 + g.rng.Intn(156)),
				B: uint8(100 + g.rng.Intn(156)),
				A: 255,
			},
		})
	}
}

// Update advances the world by one fixed step.
func (g *Game) Update() error {
	g.frame++

	// Integrate velocities, bouncing at the window bounds.
	w, h := float64(g.cfg.Width), float64(g.cfg.Height)
	g.moving.Each(func(_ ecs.Entity, tr *Transform, v *Velocity) {
		tr.Position.X += v.Linear.X * fixedDelta
		tr.Position.Y += v.Linear.Y * fixedDelta

		if tr.Position.X < 0 || tr.Position.X > w {
			v.Linear.X = -v.Linear.X
		}
		if tr.Position.Y < 0 || tr.Position.Y > h {
			v.Linear.Y = -v.Linear.Y
		}
	})

	if g.cfg.FreezeInterval > 0 && g.frame%uint64(g.cfg.FreezeInterval) == 0 {
		g.freezeRandomSprite()
	}

	if !g.frozen.IsEmpty() {
		g.frozen.Each(func(e ecs.Entity) bool {
			g.log.Debug("sprite frozen", zap.Uint64("entity", uint64(e)))
			return true
		})
		g.frozen.Clear()
	}

	return nil
}

// freezeRandomSprite tags one still-moving entity with the Frozen marker.
func (g *Game) freezeRandomSprite() {
	count := 0
	g.moving.Entities(func(ecs.Entity) bool {
		count++
		return true
	})
	if count == 0 {
		return
	}

	skip := g.rng.Intn(count)
	g.moving.Entities(func(e ecs.Entity) bool {
		if skip > 0 {
			skip--
			return true
		}
		if _, err := ecs.Emplace(g.reg, e, Frozen{}); err != nil {
			g.log.Warn("freeze failed", zap.Error(err))
		}
		return false
	})
}

// Draw renders every sprite; frozen ones are dimmed.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 18, G: 18, B: 28, A: 255})

	frozenPool := ecs.StorageOf[Frozen](g.reg)
	g.drawable.Each(func(e ecs.Entity, tr *Transform, sp *Sprite) {
		clr := sp.Color
		if frozenPool.Contains(e) {
			clr = color.RGBA{R: clr.R / 3, G: clr.G / 3, B: clr.B / 3, A: 255}
		}
		size := float32(sp.Size * tr.Scale.X)
		vector.DrawFilledRect(screen,
			float32(tr.Position.X), float32(tr.Position.Y),
			size, size, clr, false)
	})

	moving := 0
	g.moving.Entities(func(ecs.Entity) bool {
		moving++
		return true
	})
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"entities: %d  moving: %d  frozen: %d  fps: %0.1f",
		g.reg.Alive(),
		moving,
		frozenPool.Size(),
		ebiten.ActualFPS(),
	))
}

// Layout reports the fixed logical screen size.
func (g *Game) Layout(_, _ int) (screenWidth, screenHeight int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens the window and blocks until the game loop exits.
func (g *Game) Run() error {
	ebiten.SetWindowSize(g.cfg.Width, g.cfg.Height)
	ebiten.SetWindowTitle(g.cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	return ebiten.RunGame(g)
}

// Registry exposes the world for tests and tooling.
func (g *Game) Registry() *ecs.Registry {
	return g.reg
}
