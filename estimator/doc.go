// Package estimator implements the meta-regression estimation engine.
//
// All estimators consume an immutable dataset.Dataset and produce a Result
// through one contract:
//
//	est, err := estimator.New("REML")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := est.Fit(ds)
//
// # Estimator Family
//
// The family is a closed set of variants selected by name (case-insensitive)
// through New or MethodFromString:
//
//   - "WLS" / "FE": WeightedLeastSquares, closed-form generalized least
//     squares at a fixed (possibly zero) tau^2
//   - "DL": DerSimonianLaird, moment-based tau^2 followed by a WLS refit
//   - "ML" / "REML": Likelihood, iterative joint estimation of (beta, tau^2)
//     by coordinate optimization of the (restricted) log-likelihood
//   - "Stan": Stan, a thin adapter around an external posterior sampler
//
// # Results and Statistics
//
// Frequentist fits return *Results, which computes standard errors and
// confidence intervals on demand through ComputeStats (Wald intervals for
// coefficients, Q-profile interval for tau^2). Bayesian fits return
// *BayesianResults, which carries posterior summaries and does not support
// the stats-computation step; callers check for the StatsComputer interface
// before invoking it.
//
// # Error Semantics
//
// A singular weighted design fails the fit immediately with
// errs.ErrSingularDesign. Exhausting the likelihood iteration budget does
// not fail: the last iterate is returned with errs.ErrConvergence recorded
// in Results.Warnings, so batch analyses can proceed past individual
// convergence failures.
package estimator
