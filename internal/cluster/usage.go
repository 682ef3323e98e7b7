package cluster

import (
	"math"

	corev1 "k8s.io/api/core/v1"

	"stats-exporter/internal/model"
)

// nodeUsage reports requested CPU and memory as a percentage of the node's
// allocatable resources.
func nodeUsage(node *corev1.Node, pods []corev1.Pod) model.BasicStats {
	var cpuMilli, memBytes int64
	for _, pod := range pods {
		for _, c := range pod.Spec.Containers {
			cpuMilli += c.Resources.Requests.Cpu().MilliValue()
			memBytes += c.Resources.Requests.Memory().Value()
		}
	}
	alloc := node.Status.Allocatable
	return model.BasicStats{
		CPUPercent: percent(cpuMilli, alloc.Cpu().MilliValue()),
		RAMPercent: percent(memBytes, alloc.Memory().Value()),
	}
}

func percent(used, total int64) float64 {
	if total <= 0 || used <= 0 {
		return 0
	}
	p := float64(used) / float64(total) * 100
	return math.Round(p*10) / 10
}
