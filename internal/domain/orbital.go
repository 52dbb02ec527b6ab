package domain

import (
	"math"
	"time"
)

// Physical constants for the circular-orbit eclipse/flux model (§4.2).
const (
	earthRadiusKm  = 6371.0
	earthMuKm3S2   = 398600.4418 // standard gravitational parameter, km^3/s^2
	sunAngularDiam = 0.533       // deg, informational; umbra uses Earth's angular radius only

	defaultPenumbraWidthSeconds = 60.0 // 1 minute, spec.md §4.2 default
)

// OrbitalPeriodSeconds returns the circular-orbit period T_orb =
// 2*pi*sqrt((R_E+h)^3/mu) for the given altitude in km.
func OrbitalPeriodSeconds(altitudeKm float64) float64 {
	rKm := earthRadiusKm + altitudeKm
	return 2 * math.Pi * math.Sqrt(rKm*rKm*rKm/earthMuKm3S2)
}

// MeanMotionRadPerSec returns 2*pi/T_orb for the given altitude in km.
func MeanMotionRadPerSec(altitudeKm float64) float64 {
	return 2 * math.Pi / OrbitalPeriodSeconds(altitudeKm)
}

// OrbitalGeometry is a pure, stateless sampler mapping absolute time to the
// satellite's orbital position and the instantaneous sun direction, in an
// Earth-centered orbit-plane frame. Re-created per run from an OrbitalConfig;
// never mutated after construction (spec.md §4.2 "deterministic; stateless
// across calls").
type OrbitalGeometry struct {
	cfg          OrbitalConfig
	periodSec    float64
	meanMotion   float64
	penumbraSec  float64
}

// NewOrbitalGeometry builds a geometry sampler from the model's orbital
// configuration.
func NewOrbitalGeometry(cfg OrbitalConfig) *OrbitalGeometry {
	penumbra := cfg.PenumbraWidthSeconds
	if penumbra <= 0 {
		penumbra = defaultPenumbraWidthSeconds
	}
	return &OrbitalGeometry{
		cfg:         cfg,
		periodSec:   OrbitalPeriodSeconds(cfg.AltitudeKm),
		meanMotion:  MeanMotionRadPerSec(cfg.AltitudeKm),
		penumbraSec: penumbra,
	}
}

// trueAnomaly returns the orbit-plane angle (rad) swept since epoch. Circular
// orbit: mean anomaly equals true anomaly exactly.
func (g *OrbitalGeometry) trueAnomaly(t time.Time) float64 {
	dt := t.Sub(g.cfg.Epoch).Seconds()
	return math.Mod(g.meanMotion*dt, 2*math.Pi)
}

// positionOrbitFrame returns the satellite's unit radial (nadir-pointing
// reversed, i.e. outward) direction and along-track direction in the orbit
// plane, parameterized by true anomaly nu measured from the ascending node.
func positionOrbitFrame(nu float64) (radialOut, alongTrack Vec3) {
	radialOut = Vec3{X: math.Cos(nu), Y: math.Sin(nu), Z: 0}
	alongTrack = Vec3{X: -math.Sin(nu), Y: math.Cos(nu), Z: 0}
	return
}

// sunDirection returns the unit heliocentric direction of the sun as seen
// from Earth, expressed in the orbit-plane frame. Recomputed per day
// (epoch-plus-elapsed, §4.2 step 2); held constant within a day by rounding
// the elapsed time down to a whole day before evaluating Earth's heliocentric
// longitude, so repeated calls within the same orbit agree.
func (g *OrbitalGeometry) sunDirection(t time.Time) Vec3 {
	daysSinceEpoch := math.Floor(t.Sub(g.cfg.Epoch).Hours() / 24.0)
	// Earth's heliocentric ecliptic longitude advances ~360/365.25 deg/day;
	// the sun direction as seen from Earth is the reverse of that longitude.
	meanSolarLongitudeDeg := math.Mod(daysSinceEpoch*(360.0/365.25), 360.0)
	lonRad := meanSolarLongitudeDeg * math.Pi / 180.0

	// Project the ecliptic sun direction into the orbit plane using the
	// orbit's RAAN as the angle between the ecliptic and orbit-plane x-axes;
	// a flattened, single-plane approximation. Inclination does not enter
	// the projection, so the sun direction always lies in the orbit plane.
	incRad := g.cfg.InclinationDeg * math.Pi / 180.0
	raanRad := g.cfg.RAANDeg * math.Pi / 180.0
	offset := raanRad + incRad*0 // RAAN rotates the orbit plane about Earth's polar axis
	return Vec3{
		X: math.Cos(lonRad - offset),
		Y: math.Sin(lonRad - offset),
		Z: 0,
	}.Normalize()
}

// eclipseFraction returns f_sun(t) in [0,1]: 1 in full sun, 0 in umbra, with a
// linear ramp of width g.penumbraSec at umbra entry/exit (§4.2 step 3).
func (g *OrbitalGeometry) eclipseFraction(t time.Time) float64 {
	nu := g.trueAnomaly(t)
	radialOut, _ := positionOrbitFrame(nu)
	sun := g.sunDirection(t)

	// Umbra occupies the half of the orbit whose outward radial points away
	// from the sun (radialOut.Dot(sun) < 0), restricted to the arc actually
	// occluded by Earth's angular radius at this altitude.
	cosAngleFromAntiSun := -radialOut.Dot(sun) // 1 when exactly opposite the sun
	earthAngularRadius := math.Asin(earthRadiusKm / (earthRadiusKm + g.cfg.AltitudeKm))
	occludedCosThreshold := math.Cos(earthAngularRadius)

	if cosAngleFromAntiSun <= 0 {
		return 1 // sunward half of the orbit: always lit
	}

	angleFromAntiSun := math.Acos(clamp(cosAngleFromAntiSun, -1, 1))
	// Convert half the penumbra ramp width (seconds of orbital time) into an
	// angle, so the whole ramp lasts penumbraSec.
	rampAngle := g.meanMotion * g.penumbraSec / 2

	if angleFromAntiSun <= earthAngularRadius-rampAngle {
		return 0 // deep in umbra
	}
	if angleFromAntiSun >= earthAngularRadius+rampAngle {
		return 1 // well clear of the shadow cone
	}
	if rampAngle <= 0 {
		if angleFromAntiSun < earthAngularRadius {
			return 0
		}
		return 1
	}
	// Linear ramp across [earthAngularRadius-rampAngle, earthAngularRadius+rampAngle].
	_ = occludedCosThreshold
	return clamp((angleFromAntiSun-(earthAngularRadius-rampAngle))/(2*rampAngle), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// surfaceNormal returns the outward unit normal (orbit-plane frame) for a
// given surface type at the satellite's position at time t.
func (g *OrbitalGeometry) surfaceNormal(t time.Time, surface SurfaceType, custom Vec3) Vec3 {
	nu := g.trueAnomaly(t)
	radialOut, _ := positionOrbitFrame(nu)

	switch surface {
	case SolarTracking:
		return g.sunDirection(t)
	case EarthFacing:
		return radialOut.Scale(-1) // points toward nadir
	case AntiEarth:
		return radialOut
	case CustomNormal:
		return custom.Normalize()
	default:
		return radialOut
	}
}

// SurfaceFluxes holds the three incident flux components for one orbital
// surface at one instant, in W/m^2 before multiplying by area.
type SurfaceFluxes struct {
	SolarWm2  float64
	AlbedoWm2 float64
	IRWm2     float64
}

// Total returns the sum of all three components (W/m^2).
func (f SurfaceFluxes) Total() float64 {
	return f.SolarWm2 + f.AlbedoWm2 + f.IRWm2
}

// earthIRViewFactor returns the flat-plate-to-sphere view factor from a
// surface with outward normal n at altitude h to the Earth, given the cosine
// of the angle between n and the nadir direction.
func earthIRViewFactor(altitudeKm float64, cosToNadir float64) float64 {
	if cosToNadir <= 0 {
		return 0
	}
	rho := earthRadiusKm / (earthRadiusKm + altitudeKm)
	// Standard flat-plate-to-sphere radiative view factor.
	return cosToNadir * rho * rho
}

// SurfaceFluxesAt computes the instantaneous solar/albedo/IR fluxes (W/m^2,
// before multiplying by area) incident on one orbital surface at time t
// (§4.2 step 4-5).
func (g *OrbitalGeometry) SurfaceFluxesAt(t time.Time, env EnvironmentPreset, surface SurfaceType, custom Vec3, alpha, eps float64) SurfaceFluxes {
	if surface == IsotropicAverage {
		return g.isotropicAverageFluxes(t, env, alpha, eps)
	}

	nu := g.trueAnomaly(t)
	radialOut, _ := positionOrbitFrame(nu)
	n := g.surfaceNormal(t, surface, custom)
	sun := g.sunDirection(t)

	muSun := math.Max(0, n.Dot(sun))
	fSun := g.eclipseFraction(t)

	cosToNadir := n.Dot(radialOut.Scale(-1))
	viewFactorEarth := earthIRViewFactor(g.cfg.AltitudeKm, cosToNadir)
	albedoViewFactor := viewFactorEarth * math.Max(0, sun.Dot(radialOut.Scale(-1)))

	return SurfaceFluxes{
		SolarWm2:  alpha * env.SolarFluxWm2 * muSun * fSun,
		AlbedoWm2: alpha * env.BondAlbedo * env.SolarFluxWm2 * albedoViewFactor * fSun,
		IRWm2:     eps * env.EarthIRWm2 * viewFactorEarth,
	}
}

// AttitudeLossTumbleConfig describes an axis set for the isotropic average of
// the attitude_loss_tumble failure case. No code path reads it:
// isotropicAverageFluxes always averages over defaultTumbleAxes.
type AttitudeLossTumbleConfig struct {
	// AverageOverAxes lists orbit-frame axes for the tumbling average. It is
	// not consulted by the flux computation.
	AverageOverAxes []Vec3
}

func defaultTumbleAxes() []Vec3 {
	return []Vec3{
		{X: 1}, {X: -1},
		{Y: 1}, {Y: -1},
		{Z: 1}, {Z: -1},
	}
}

// isotropicAverageFluxes implements the attitude_loss_tumble recipe: the
// surface's incident flux is the average, over a fixed set of body-frame
// normals, of the flux each would see were it the surface's instantaneous
// orientation (spec.md §4.9, §9(b)).
func (g *OrbitalGeometry) isotropicAverageFluxes(t time.Time, env EnvironmentPreset, alpha, eps float64) SurfaceFluxes {
	axes := defaultTumbleAxes()
	nu := g.trueAnomaly(t)
	radialOut, _ := positionOrbitFrame(nu)
	sun := g.sunDirection(t)
	fSun := g.eclipseFraction(t)

	var sum SurfaceFluxes
	for _, axis := range axes {
		muSun := math.Max(0, axis.Dot(sun))
		cosToNadir := axis.Dot(radialOut.Scale(-1))
		viewFactorEarth := earthIRViewFactor(g.cfg.AltitudeKm, cosToNadir)
		albedoViewFactor := viewFactorEarth * math.Max(0, sun.Dot(radialOut.Scale(-1)))

		sum.SolarWm2 += alpha * env.SolarFluxWm2 * muSun * fSun
		sum.AlbedoWm2 += alpha * env.BondAlbedo * env.SolarFluxWm2 * albedoViewFactor * fSun
		sum.IRWm2 += eps * env.EarthIRWm2 * viewFactorEarth
	}
	n := float64(len(axes))
	return SurfaceFluxes{
		SolarWm2:  sum.SolarWm2 / n,
		AlbedoWm2: sum.AlbedoWm2 / n,
		IRWm2:     sum.IRWm2 / n,
	}
}
