// Package cluster polls the Kubernetes API for per-node usage of the nodes
// listed in kubernetes_config.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"stats-exporter/internal/config"
	"stats-exporter/internal/model"
)

// NewClient builds a clientset from a kubeconfig path, or from the in-cluster
// service account when the path is empty.
func NewClient(kubeconfig string) (kubernetes.Interface, error) {
	var (
		restCfg *rest.Config
		err     error
	)
	if kubeconfig == "" {
		restCfg, err = rest.InClusterConfig()
	} else {
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("kubernetes client config: %w", err)
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("kubernetes clientset: %w", err)
	}
	return client, nil
}

type Poller struct {
	client  kubernetes.Interface
	logger  *slog.Logger
	nodes   []config.NodeTarget
	exclude map[string]struct{}
	timeout time.Duration
}

func NewPoller(client kubernetes.Interface, feature config.ClusterFeature, logger *slog.Logger) *Poller {
	exclude := make(map[string]struct{}, len(feature.ExcludeNamespaces))
	for _, ns := range feature.ExcludeNamespaces {
		exclude[ns] = struct{}{}
	}
	timeout := feature.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Poller{
		client:  client,
		logger:  logger,
		nodes:   append([]config.NodeTarget(nil), feature.Nodes...),
		exclude: exclude,
		timeout: timeout,
	}
}

// Poll returns one entry per configured node, in configuration order. A
// node missing from the API yields a zero-valued entry; any other API
// failure fails the whole poll so the caller can carry the previous result.
func (p *Poller) Poll(ctx context.Context) ([]model.ClusterNodeUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	pods, err := p.client.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods: %w", err)
	}
	byNode := make(map[string][]corev1.Pod)
	for _, pod := range pods.Items {
		if pod.Spec.NodeName == "" || p.excluded(pod.Namespace) || finished(pod) {
			continue
		}
		byNode[pod.Spec.NodeName] = append(byNode[pod.Spec.NodeName], pod)
	}

	out := make([]model.ClusterNodeUsage, 0, len(p.nodes))
	for _, target := range p.nodes {
		usage := model.ClusterNodeUsage{
			Role: string(target.Role),
			Name: target.Name,
			IP:   target.IP,
			Pods: []string{},
		}

		node, err := p.client.CoreV1().Nodes().Get(ctx, target.Name, metav1.GetOptions{})
		switch {
		case apierrors.IsNotFound(err):
			p.logger.Warn("cluster node not found", "node", target.Name)
			out = append(out, usage)
			continue
		case err != nil:
			return nil, fmt.Errorf("get node %s: %w", target.Name, err)
		}

		nodePods := byNode[target.Name]
		usage.Basic = nodeUsage(node, nodePods)
		usage.PodCapacity = node.Status.Capacity.Pods().Value()
		for _, pod := range nodePods {
			usage.Pods = append(usage.Pods, pod.Name)
		}
		sort.Strings(usage.Pods)
		out = append(out, usage)
	}
	return out, nil
}

func (p *Poller) excluded(namespace string) bool {
	_, ok := p.exclude[namespace]
	return ok
}

func finished(pod corev1.Pod) bool {
	return pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed
}
