package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rbfinterp/pkg/config"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/interpolation"
	"rbfinterp/pkg/pointcloud"
)

type fitRun struct {
	ConfigFile string
	Surface    int
	Offset     float64
	Gradients  bool
	Seed       int64
	Queries    int
	Tolerance  float64
	ProfileDir string
}

var rootCmd = &cobra.Command{
	Use:   "rbffit",
	Short: "Fit an RBF interpolant to signed-distance samples of a sphere",
	Long: `rbffit samples a signed distance field around the unit sphere, fits an RBF
interpolant with the domain-decomposition preconditioned solver and reports
the residuals at the data sites and the error at random query points.`,
	Run: func(cmd *cobra.Command, args []string) {
		run := &fitRun{}
		run.ConfigFile, _ = cmd.Flags().GetString("config")
		run.Surface, _ = cmd.Flags().GetInt("surfacePoints")
		run.Offset, _ = cmd.Flags().GetFloat64("offset")
		run.Gradients, _ = cmd.Flags().GetBool("gradients")
		run.Seed, _ = cmd.Flags().GetInt64("seed")
		run.Queries, _ = cmd.Flags().GetInt("queries")
		run.Tolerance, _ = cmd.Flags().GetFloat64("tolerance")
		run.ProfileDir, _ = cmd.Flags().GetString("profile")
		if run.ProfileDir != "" {
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(run.ProfileDir)).Stop()
		}
		if err := Fit(run); err != nil {
			log.Fatalf("Fit failed: %v", err)
		}
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config <path>",
	Short: "Write the default configuration file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.CreateDefaultConfigFile(args[0]); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.Flags().StringP("config", "c", "rbffit.yaml", "YAML configuration file (defaults are used when it does not exist)")
	rootCmd.Flags().IntP("surfacePoints", "n", 2000, "number of random points on the unit sphere")
	rootCmd.Flags().Float64P("offset", "o", 0.01, "distance of the off-surface samples along the normals")
	rootCmd.Flags().BoolP("gradients", "g", false, "constrain the gradient to the surface normal at every surface point")
	rootCmd.Flags().Int64P("seed", "s", 1, "random seed")
	rootCmd.Flags().IntP("queries", "q", 1000, "number of random query points for the error estimate")
	rootCmd.Flags().Float64P("tolerance", "t", 0, "absolute fitting tolerance (overrides the configuration when positive)")
	rootCmd.Flags().StringP("profile", "p", "", "write a CPU profile into this directory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Fit runs one fit-and-evaluate cycle.
func Fit(run *fitRun) error {
	cfg, err := config.LoadConfig(run.ConfigFile)
	if err != nil {
		return err
	}
	if run.Tolerance > 0 {
		cfg.Solver.Tolerance = run.Tolerance
	}
	model, err := cfg.BuildModel()
	if err != nil {
		return err
	}
	if run.Gradients {
		if err := model.CheckGradientData(run.Surface); err != nil {
			return fmt.Errorf("%w (choose a smooth kernel such as multiquadric or gaussian in the configuration)", err)
		}
	}

	sphere := pointcloud.UnitSphere()
	surface := pointcloud.RandomPoints(sphere, run.Surface, run.Seed)
	normals := make(geometry.Points3D, len(surface))
	for i, p := range surface {
		normals[i] = sphere.Normal(p)
	}
	points, values, err := pointcloud.SDFData(surface, normals, run.Offset)
	if err != nil {
		return err
	}
	kept := pointcloud.DistanceFilter(points, 1e-6)
	points = points.Subset(kept)
	filtered := make([]float64, len(kept))
	for i, idx := range kept {
		filtered[i] = values[idx]
	}
	values = filtered

	var gradPoints geometry.Points3D
	if run.Gradients {
		gradPoints = surface
		for _, n := range normals {
			values = append(values, n.X, n.Y, n.Z)
		}
	}

	fmt.Println("================================")
	fmt.Printf("Kernel %s %v, degree %d, nugget %g\n", model.Kernel().Name(), model.Kernel().Parameters(), model.PolyDegree(), model.Nugget())
	fmt.Printf("%d points, %d gradient points, tolerance %g\n", len(points), len(gradPoints), cfg.Solver.Tolerance)
	fmt.Println("================================")

	startTime := time.Now()
	fitter, err := interpolation.NewFitter(model, points, gradPoints, cfg.FitterOptions())
	if err != nil {
		return err
	}
	setupTime := time.Since(startTime)

	weights, err := fitter.Fit(values, cfg.Solver.Tolerance, nil)
	if err != nil {
		return err
	}
	stats := fitter.Stats()
	fmt.Printf("\nFit completed in %.2f seconds (setup %.2f s, %d iterations, %d restarts)\n",
		time.Since(startTime).Seconds(), setupTime.Seconds(), stats.Iterations, stats.Resumes)

	eval := interpolation.NewSymmetricEvaluator(model, points, gradPoints)
	eval.SetWorkers(cfg.Solver.NumCores)
	if err := eval.SetWeights(weights); err != nil {
		return err
	}
	fit, err := eval.Evaluate()
	if err != nil {
		return err
	}
	residuals := make([]float64, len(values))
	for i := range values {
		residuals[i] = math.Abs(values[i] - fit[i])
	}
	fmt.Printf("Residuals at data sites: max %.3e, mean %.3e, std %.3e\n",
		floats.Max(residuals), stat.Mean(residuals, nil), stat.StdDev(residuals, nil))

	if run.Queries > 0 {
		queries := pointcloud.RandomPoints(pointcloud.Box{
			Min: geometry.Point3D{X: -1.2, Y: -1.2, Z: -1.2},
			Max: geometry.Point3D{X: 1.2, Y: 1.2, Z: 1.2},
		}, run.Queries, run.Seed+1)
		direct := interpolation.NewDirectEvaluator(model, points, gradPoints)
		direct.SetWorkers(cfg.Solver.NumCores)
		direct.SetFieldPoints(queries)
		if err := direct.SetWeights(weights); err != nil {
			return err
		}
		got, err := direct.Evaluate()
		if err != nil {
			return err
		}
		// Only queries near the surface are expected to match the distance.
		var errs []float64
		for i, q := range queries {
			d := q.Norm() - 1
			if math.Abs(d) < 0.1 {
				errs = append(errs, math.Abs(got[i]-d))
			}
		}
		if len(errs) > 0 {
			fmt.Printf("Error at %d near-surface queries: max %.3e, mean %.3e\n",
				len(errs), floats.Max(errs), stat.Mean(errs, nil))
		}
	}
	return nil
}
