/*
Package workers sizes worker pools from the CPUs available to the process.

runtime.NumCPU reports the host's CPUs even inside a container with a CPU
limit, while GOMAXPROCS follows the cgroup quota (Go 1.19+). Count scales
GOMAXPROCS by a per-workload multiplier:

	n := workers.Count(2.0, 16) // I/O-bound, at most 16
	n := workers.ForAnalysis(0) // ffmpeg analyses, no cap

Operators can pin the count with ANALYSIS_WORKERS:

	env:
	- name: ANALYSIS_WORKERS
	  value: "2"
*/
package workers
