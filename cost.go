/*
Copyright © 2019 the MultiDop authors.
This file is part of MultiDop.

MultiDop is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MultiDop is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MultiDop.  If not, see <http://www.gnu.org/licenses/>.
*/

package multidop

import (
	"math"
)

// A costContext evaluates the physical cost function and its gradient
// for one grid level. It holds the observations, weights, and
// coefficients for that level; all of them are read-only after
// construction, so the same context is reused for every evaluation at
// that level.
type costContext struct {
	nz, ny, nx int
	dz, dy, dx float64
	z          []float64

	obs     []*ObservationSet
	weights *WeightSet
	model   []*ModelField

	// Background winds interpolated onto the grid levels, or nil when
	// the background constraint is disabled.
	uBack, vBack []float64

	coeff Coefficients

	// rmsVr normalizes the observation term so that Co is
	// dimensionless with respect to the magnitude of the observed
	// radial velocities.
	rmsVr float64
}

func newCostContext(level *GridLevel, obs []*ObservationSet, weights *WeightSet,
	model []*ModelField, sounding *Sounding, coeff Coefficients) *costContext {
	nz, ny, nx := level.Shape()
	dz, dy, dx := level.Spacing()
	c := &costContext{
		nz: nz, ny: ny, nx: nx,
		dz: dz, dy: dy, dx: dx,
		z:       level.Z,
		obs:     obs,
		weights: weights,
		model:   model,
		coeff:   coeff,
	}
	if sounding != nil {
		c.uBack, c.vBack = sounding.interpolateTo(level.Z)
	}

	var sumSq, sumW float64
	for r, o := range obs {
		w := weights.Obs[r]
		for i, vr := range o.Vr.Elements {
			wi := w.Elements[i]
			if math.IsNaN(vr) || math.IsNaN(wi) {
				continue
			}
			sumSq += vr * vr * wi
			sumW += wi
		}
	}
	if sumW > 0 && sumSq > 0 {
		c.rmsVr = sumSq / sumW
	} else {
		c.rmsVr = 1
	}
	return c
}

// n returns the number of cells in one wind component.
func (c *costContext) n() int { return c.nz * c.ny * c.nx }

func (c *costContext) components(winds []float64) (u, v, w []float64) {
	n := c.n()
	return winds[0:n], winds[n : 2*n], winds[2*n : 3*n]
}

// cost evaluates the total physical cost at the given flattened wind
// vector. Masked entries of the observations and weights contribute
// nothing.
func (c *costContext) cost(winds []float64) float64 {
	u, v, w := c.components(winds)
	J := c.radialVelocityCost(u, v, w)
	if c.coeff.Cm != 0 {
		J += c.massContinuityCost(u, v, w)
	}
	if c.coeff.Cx != 0 || c.coeff.Cy != 0 || c.coeff.Cz != 0 {
		J += c.smoothnessCost(u, v, w)
	}
	if c.coeff.Cb != 0 && c.uBack != nil {
		J += c.backgroundCost(u, v)
	}
	if c.coeff.Cv != 0 {
		J += c.vorticityCost(u, v)
	}
	if c.coeff.Cmod != 0 {
		J += c.modelCost(u, v, w)
	}
	return J
}

// gradient evaluates the gradient of the total physical cost,
// returning a vector of the same shape and ordering as winds. The
// vertical component's gradient is clamped to zero at the surface and,
// when the upper boundary condition is enabled, at the grid top.
func (c *costContext) gradient(winds []float64) []float64 {
	u, v, w := c.components(winds)
	grad := make([]float64, len(winds))
	gu, gv, gw := c.components(grad)

	c.radialVelocityGrad(u, v, w, gu, gv, gw)
	if c.coeff.Cm != 0 {
		c.massContinuityGrad(u, v, w, gu, gv, gw)
	}
	if c.coeff.Cx != 0 || c.coeff.Cy != 0 || c.coeff.Cz != 0 {
		c.smoothnessGrad(u, v, w, gu, gv, gw)
	}
	if c.coeff.Cb != 0 && c.uBack != nil {
		c.backgroundGrad(u, v, gu, gv)
	}
	if c.coeff.Cv != 0 {
		c.vorticityGrad(u, v, gu, gv)
	}
	if c.coeff.Cmod != 0 {
		c.modelGrad(u, v, w, gu, gv, gw)
	}

	// Impermeable boundaries: w is pinned at the surface, and at the
	// top when the upper boundary condition is on.
	for j := 0; j < c.ny; j++ {
		for i := 0; i < c.nx; i++ {
			gw[c.idx(0, j, i)] = 0
			if c.coeff.UpperBC {
				gw[c.idx(c.nz-1, j, i)] = 0
			}
		}
	}
	return grad
}

func (c *costContext) idx(k, j, i int) int { return (k*c.ny+j)*c.nx + i }

// projectRadial returns the projection of the wind vector at flat
// index m onto radar r's line of sight, accounting for precipitation
// fall speed, along with the beam direction cosines. ok is false where
// any needed observation input is masked.
func (c *costContext) projectRadial(r int, m int, u, v, w []float64) (vrPred, cu, cv, cw float64, ok bool) {
	o := c.obs[r]
	az := o.Azimuth.Elements[m]
	el := o.Elevation.Elements[m]
	vt := o.FallSpeed.Elements[m]
	if math.IsNaN(az) || math.IsNaN(el) || math.IsNaN(vt) {
		return 0, 0, 0, 0, false
	}
	cu = math.Cos(el) * math.Sin(az)
	cv = math.Cos(el) * math.Cos(az)
	cw = math.Sin(el)
	vrPred = cu*u[m] + cv*v[m] + cw*(w[m]-vt)
	return vrPred, cu, cv, cw, true
}

func (c *costContext) radialVelocityCost(u, v, w []float64) float64 {
	lambda := c.coeff.Co / c.rmsVr
	var J float64
	for r, o := range c.obs {
		wts := c.weights.Obs[r]
		for m, vr := range o.Vr.Elements {
			wt := wts.Elements[m]
			if math.IsNaN(vr) || math.IsNaN(wt) || wt == 0 {
				continue
			}
			vrPred, _, _, _, ok := c.projectRadial(r, m, u, v, w)
			if !ok {
				continue
			}
			d := vrPred - vr
			J += lambda * wt * d * d
		}
	}
	return J
}

func (c *costContext) radialVelocityGrad(u, v, w, gu, gv, gw []float64) {
	lambda := c.coeff.Co / c.rmsVr
	for r, o := range c.obs {
		wts := c.weights.Obs[r]
		for m, vr := range o.Vr.Elements {
			wt := wts.Elements[m]
			if math.IsNaN(vr) || math.IsNaN(wt) || wt == 0 {
				continue
			}
			vrPred, cu, cv, cw, ok := c.projectRadial(r, m, u, v, w)
			if !ok {
				continue
			}
			d := 2 * lambda * wt * (vrPred - vr)
			gu[m] += d * cu
			gv[m] += d * cv
			gw[m] += d * cw
		}
	}
}

// divergence returns the anelastic divergence field
// ∂u/∂x + ∂v/∂y + ∂w/∂z − w/H, where H is the density scale height of
// the assumed exponential base-state density profile.
func (c *costContext) divergence(u, v, w []float64) []float64 {
	div := c.ddx(u)
	dvdy := c.ddy(v)
	dwdz := c.ddz(w)
	for m := range div {
		div[m] += dvdy[m] + dwdz[m] - w[m]/densityScaleHeight
	}
	return div
}

func (c *costContext) massContinuityCost(u, v, w []float64) float64 {
	div := c.divergence(u, v, w)
	var J float64
	for _, d := range div {
		if math.IsNaN(d) {
			continue
		}
		J += c.coeff.Cm / 2 * d * d
	}
	return J
}

func (c *costContext) massContinuityGrad(u, v, w, gu, gv, gw []float64) {
	div := c.divergence(u, v, w)
	for m := range div {
		if math.IsNaN(div[m]) {
			div[m] = 0
		}
	}
	// The adjoint of the centered difference is its negative.
	dx := c.ddx(div)
	dy := c.ddy(div)
	dz := c.ddz(div)
	for m := range div {
		gu[m] -= c.coeff.Cm * dx[m]
		gv[m] -= c.coeff.Cm * dy[m]
		gw[m] -= c.coeff.Cm * (dz[m] + div[m]/densityScaleHeight)
	}
}

func (c *costContext) smoothnessCost(u, v, w []float64) float64 {
	var J float64
	for _, f := range [][]float64{u, v, w} {
		if c.coeff.Cx != 0 {
			J += sumSquares(c.d2x(f)) * c.coeff.Cx / 2
		}
		if c.coeff.Cy != 0 {
			J += sumSquares(c.d2y(f)) * c.coeff.Cy / 2
		}
		if c.coeff.Cz != 0 {
			J += sumSquares(c.d2z(f)) * c.coeff.Cz / 2
		}
	}
	return J
}

func (c *costContext) smoothnessGrad(u, v, w, gu, gv, gw []float64) {
	for fi, f := range [][]float64{u, v, w} {
		g := [][]float64{gu, gv, gw}[fi]
		// The interior-only second difference is self-adjoint.
		if c.coeff.Cx != 0 {
			addScaled(g, c.coeff.Cx, c.d2x(c.d2x(f)))
		}
		if c.coeff.Cy != 0 {
			addScaled(g, c.coeff.Cy, c.d2y(c.d2y(f)))
		}
		if c.coeff.Cz != 0 {
			addScaled(g, c.coeff.Cz, c.d2z(c.d2z(f)))
		}
	}
}

func (c *costContext) backgroundCost(u, v []float64) float64 {
	var J float64
	for k := 0; k < c.nz; k++ {
		ub, vb := c.uBack[k], c.vBack[k]
		if math.IsNaN(ub) || math.IsNaN(vb) {
			continue
		}
		for j := 0; j < c.ny; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				wt := c.weights.Background.Elements[m]
				if math.IsNaN(wt) {
					continue
				}
				du := u[m] - ub
				dv := v[m] - vb
				J += c.coeff.Cb * wt * (du*du + dv*dv)
			}
		}
	}
	return J
}

func (c *costContext) backgroundGrad(u, v, gu, gv []float64) {
	for k := 0; k < c.nz; k++ {
		ub, vb := c.uBack[k], c.vBack[k]
		if math.IsNaN(ub) || math.IsNaN(vb) {
			continue
		}
		for j := 0; j < c.ny; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				wt := c.weights.Background.Elements[m]
				if math.IsNaN(wt) {
					continue
				}
				gu[m] += 2 * c.coeff.Cb * wt * (u[m] - ub)
				gv[m] += 2 * c.coeff.Cb * wt * (v[m] - vb)
			}
		}
	}
}

func (c *costContext) modelCost(u, v, w []float64) float64 {
	var J float64
	for mi, mf := range c.model {
		wts := c.weights.Model[mi]
		for m := range u {
			wt := wts.Elements[m]
			um, vm, wm := mf.U.Elements[m], mf.V.Elements[m], mf.W.Elements[m]
			if math.IsNaN(wt) || math.IsNaN(um) || math.IsNaN(vm) || math.IsNaN(wm) {
				continue
			}
			du := u[m] - um
			dv := v[m] - vm
			dw := w[m] - wm
			J += c.coeff.Cmod * wt * (du*du + dv*dv + dw*dw)
		}
	}
	return J
}

func (c *costContext) modelGrad(u, v, w, gu, gv, gw []float64) {
	for mi, mf := range c.model {
		wts := c.weights.Model[mi]
		for m := range u {
			wt := wts.Elements[m]
			um, vm, wm := mf.U.Elements[m], mf.V.Elements[m], mf.W.Elements[m]
			if math.IsNaN(wt) || math.IsNaN(um) || math.IsNaN(vm) || math.IsNaN(wm) {
				continue
			}
			gu[m] += 2 * c.coeff.Cmod * wt * (u[m] - um)
			gv[m] += 2 * c.coeff.Cmod * wt * (v[m] - vm)
			gw[m] += 2 * c.coeff.Cmod * wt * (w[m] - wm)
		}
	}
}

// vorticityAdvection returns the advection of vertical vorticity by
// the storm-relative flow, (u−Ut)·∂ζ/∂x + (v−Vt)·∂ζ/∂y with
// ζ = ∂v/∂x − ∂u/∂y, together with the vorticity derivative fields
// needed for the gradient.
func (c *costContext) vorticityAdvection(u, v []float64) (adv, dzdx, dzdy []float64) {
	zeta := c.ddx(v)
	dudy := c.ddy(u)
	for m := range zeta {
		zeta[m] -= dudy[m]
	}
	dzdx = c.ddx(zeta)
	dzdy = c.ddy(zeta)
	adv = make([]float64, len(zeta))
	for m := range adv {
		adv[m] = (u[m]-c.coeff.Ut)*dzdx[m] + (v[m]-c.coeff.Vt)*dzdy[m]
	}
	return adv, dzdx, dzdy
}

func (c *costContext) vorticityCost(u, v []float64) float64 {
	adv, _, _ := c.vorticityAdvection(u, v)
	var J float64
	for _, a := range adv {
		if math.IsNaN(a) {
			continue
		}
		J += c.coeff.Cv / 2 * a * a
	}
	return J
}

func (c *costContext) vorticityGrad(u, v, gu, gv []float64) {
	adv, dzdx, dzdy := c.vorticityAdvection(u, v)
	lam := make([]float64, len(adv))
	for m, a := range adv {
		if math.IsNaN(a) {
			continue
		}
		lam[m] = c.coeff.Cv * a
	}
	// Direct dependence of the advection on u and v.
	for m := range lam {
		gu[m] += lam[m] * dzdx[m]
		gv[m] += lam[m] * dzdy[m]
	}
	// Dependence through ζ: the adjoint of the storm-relative
	// directional derivative, followed by the adjoint of the curl.
	t1 := make([]float64, len(lam))
	t2 := make([]float64, len(lam))
	for m := range lam {
		t1[m] = lam[m] * (u[m] - c.coeff.Ut)
		t2[m] = lam[m] * (v[m] - c.coeff.Vt)
	}
	t := c.ddx(t1)
	ty := c.ddy(t2)
	for m := range t {
		t[m] += ty[m]
	}
	gyt := c.ddy(t)
	gxt := c.ddx(t)
	for m := range t {
		gu[m] -= gyt[m]
		gv[m] += gxt[m]
	}
}

// ddx computes the derivative of the flattened field f along the x
// dimension with centered differences in the interior and one-sided
// differences at the boundaries.
func (c *costContext) ddx(f []float64) []float64 {
	out := make([]float64, len(f))
	for k := 0; k < c.nz; k++ {
		for j := 0; j < c.ny; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				switch {
				case c.nx == 1:
				case i == 0:
					out[m] = (f[c.idx(k, j, 1)] - f[m]) / c.dx
				case i == c.nx-1:
					out[m] = (f[m] - f[c.idx(k, j, i-1)]) / c.dx
				default:
					out[m] = (f[c.idx(k, j, i+1)] - f[c.idx(k, j, i-1)]) / (2 * c.dx)
				}
			}
		}
	}
	return out
}

func (c *costContext) ddy(f []float64) []float64 {
	out := make([]float64, len(f))
	for k := 0; k < c.nz; k++ {
		for j := 0; j < c.ny; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				switch {
				case c.ny == 1:
				case j == 0:
					out[m] = (f[c.idx(k, 1, i)] - f[m]) / c.dy
				case j == c.ny-1:
					out[m] = (f[m] - f[c.idx(k, j-1, i)]) / c.dy
				default:
					out[m] = (f[c.idx(k, j+1, i)] - f[c.idx(k, j-1, i)]) / (2 * c.dy)
				}
			}
		}
	}
	return out
}

func (c *costContext) ddz(f []float64) []float64 {
	out := make([]float64, len(f))
	for k := 0; k < c.nz; k++ {
		for j := 0; j < c.ny; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				switch {
				case c.nz == 1:
				case k == 0:
					out[m] = (f[c.idx(1, j, i)] - f[m]) / c.dz
				case k == c.nz-1:
					out[m] = (f[m] - f[c.idx(k-1, j, i)]) / c.dz
				default:
					out[m] = (f[c.idx(k+1, j, i)] - f[c.idx(k-1, j, i)]) / (2 * c.dz)
				}
			}
		}
	}
	return out
}

// d2x computes the second difference of f along x, zero at the
// boundary cells.
func (c *costContext) d2x(f []float64) []float64 {
	out := make([]float64, len(f))
	dx2 := c.dx * c.dx
	for k := 0; k < c.nz; k++ {
		for j := 0; j < c.ny; j++ {
			for i := 1; i < c.nx-1; i++ {
				m := c.idx(k, j, i)
				out[m] = (f[c.idx(k, j, i-1)] - 2*f[m] + f[c.idx(k, j, i+1)]) / dx2
			}
		}
	}
	return out
}

func (c *costContext) d2y(f []float64) []float64 {
	out := make([]float64, len(f))
	dy2 := c.dy * c.dy
	for k := 0; k < c.nz; k++ {
		for j := 1; j < c.ny-1; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				out[m] = (f[c.idx(k, j-1, i)] - 2*f[m] + f[c.idx(k, j+1, i)]) / dy2
			}
		}
	}
	return out
}

func (c *costContext) d2z(f []float64) []float64 {
	out := make([]float64, len(f))
	dz2 := c.dz * c.dz
	for k := 1; k < c.nz-1; k++ {
		for j := 0; j < c.ny; j++ {
			for i := 0; i < c.nx; i++ {
				m := c.idx(k, j, i)
				out[m] = (f[c.idx(k-1, j, i)] - 2*f[m] + f[c.idx(k+1, j, i)]) / dz2
			}
		}
	}
	return out
}

func sumSquares(f []float64) float64 {
	var s float64
	for _, v := range f {
		if math.IsNaN(v) {
			continue
		}
		s += v * v
	}
	return s
}

func addScaled(dst []float64, scale float64, src []float64) {
	for m, v := range src {
		if math.IsNaN(v) {
			continue
		}
		dst[m] += scale * v
	}
}
