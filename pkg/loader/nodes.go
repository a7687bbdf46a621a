package loader

import (
	"os"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"sigs.k8s.io/yaml"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

// CostAnnotation carries a node's cost per unit of simulated time. Nodes
// without it are free.
const CostAnnotation = "schedsim.g-uva.io/cost-per-unit-time"

// VMsFromNodeList turns a Kubernetes NodeList manifest (as printed by
// `kubectl get nodes -o yaml`) into a VM pool. A node's allocatable CPU, or
// its capacity when allocatable is unset, becomes the VM's processing rate.
func VMsFromNodeList(data []byte) ([]core.VM, error) {
	var list corev1.NodeList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrapf(core.ErrInvalidConfig, "decoding node list: %v", err)
	}
	vms := make([]core.VM, 0, len(list.Items))
	for i, node := range list.Items {
		cpu, ok := node.Status.Allocatable[corev1.ResourceCPU]
		if !ok || cpu.IsZero() {
			cpu = node.Status.Capacity[corev1.ResourceCPU]
		}
		capacity := float64(cpu.MilliValue()) / 1000
		if capacity <= 0 {
			return nil, errors.Wrapf(core.ErrInvalidConfig, "node %q has no cpu capacity", node.Name)
		}

		cost := 0.0
		if v, ok := node.Annotations[CostAnnotation]; ok {
			q, err := resource.ParseQuantity(v)
			if err != nil {
				return nil, errors.Wrapf(core.ErrInvalidConfig, "node %q: %s %q: %v", node.Name, CostAnnotation, v, err)
			}
			cost = q.AsApproximateFloat64()
		}
		vms = append(vms, core.VM{
			ID:              i,
			Name:            node.Name,
			Capacity:        capacity,
			CostPerUnitTime: cost,
		})
	}
	return vms, nil
}

// LoadVMsFromNodeList reads a NodeList manifest from path.
func LoadVMsFromNodeList(path string) ([]core.VM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return VMsFromNodeList(data)
}
