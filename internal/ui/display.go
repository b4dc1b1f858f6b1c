package ui

import (
	"fmt"
	"os"
	"strings"

	"taskbind/internal/bind"
	"taskbind/internal/topology"
)

func PrintTopology(topo *topology.Topology) {
	if topo == nil {
		fmt.Println(errorBoxStyle.Render("hardware topology unavailable"))
		return
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Hardware Topology"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s %d    %s %d    %s %d    %s %d\n\n",
		groupStyle.Render("NUMA domains:"), topo.NumNUMANodes(),
		unitStyle.Render("Cores:"), topo.NumCores(),
		threadStyle.Render("Units:"), topo.NumUnits(),
		deviceStyle.Render("Devices:"), len(topo.Devices())))

	summary := topo.Summarize()
	for _, level := range summary.Levels {
		if level.Type == topology.TypeCore || level.Type == topology.TypePU {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				dimStyle.Render(fmt.Sprintf("depth %d:", level.Depth)),
				dimStyle.Render(fmt.Sprintf("%d %s objects", len(level.Objects), level.Type))))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s\n", dimStyle.Render(fmt.Sprintf("depth %d:", level.Depth))))
		for i, obj := range level.Objects {
			prefix := "├─"
			if i == len(level.Objects)-1 {
				prefix = "└─"
			}
			style := groupStyle
			if level.Type == topology.TypeNUMANode {
				style = numaStyle
			}
			b.WriteString(fmt.Sprintf("     %s %s  %s\n",
				prefix, style.Render(obj.Name), unitStyle.Render(obj.Units)))
		}
	}

	if len(summary.Devices) > 0 {
		b.WriteString(fmt.Sprintf("  %s\n", dimStyle.Render("devices:")))
		for i, dev := range summary.Devices {
			prefix := "├─"
			if i == len(summary.Devices)-1 {
				prefix = "└─"
			}
			location := "machine"
			if dev.NUMANode >= 0 {
				location = fmt.Sprintf("numa %d", dev.NUMANode)
			}
			b.WriteString(fmt.Sprintf("     %s %s %s  %s\n",
				prefix, deviceStyle.Render(fmt.Sprintf("[%d]", dev.Index)),
				dev.Name, dimStyle.Render(location)))
		}
	}

	fmt.Println(boxStyle.Render(b.String()))
}

// PrintPlan renders the node-wide per-rank binding table.
func PrintPlan(plans []bind.RankPlan, localSize int) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Binding Plan"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s %d\n\n", dimStyle.Render("local tasks:"), localSize))

	for _, rp := range plans {
		label := highlightStyle.Render(fmt.Sprintf("rank %d", rp.Rank))
		if rp.Err != nil {
			b.WriteString(fmt.Sprintf("  %s  %s\n", label, errorBoxStyle.Render(rp.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s  units %s  threads %s",
			label,
			unitStyle.Render(rp.Plan.Cpuset.String()),
			threadStyle.Render(fmt.Sprintf("%d", rp.Plan.NumThreads))))
		if rp.Plan.Devices != "" {
			b.WriteString(fmt.Sprintf("  devices %s", deviceStyle.Render(rp.Plan.Devices)))
		}
		b.WriteString("\n")
	}

	fmt.Println(boxStyle.Render(b.String()))
}

// PrintDryRun shows what this task would apply and export.
func PrintDryRun(plan *bind.Plan, localRank int) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("DRY RUN - local rank %d would bind:\n\n", localRank))
	b.WriteString(fmt.Sprintf("  Units:               %s\n", plan.Cpuset))
	b.WriteString(fmt.Sprintf("  GOMP_CPU_AFFINITY:   %s\n", plan.ThreadUnits))
	if plan.ExportThreads {
		b.WriteString(fmt.Sprintf("  OMP_NUM_THREADS:     %d\n", plan.NumThreads))
	}
	if plan.Devices != "" {
		b.WriteString(fmt.Sprintf("  CUDA_VISIBLE_DEVICES: %s\n", plan.Devices))
	}
	fmt.Println()
	fmt.Println(boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	fmt.Println()
}

func PrintApplied(cpuset string) {
	content := fmt.Sprintf("✓ Bound to units %s", cpuset)
	fmt.Println(successBoxStyle.Render(content))
}

func PrintError(err error) {
	content := fmt.Sprintf("✗ Error: %v", err)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, errorBoxStyle.Render(content))
	fmt.Fprintln(os.Stderr)
}
