package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/djordjijeK/taskflow/pkg/core/task"
)

func noopJob(ctx context.Context) (interface{}, error) {
	return nil, nil
}

func TestBuild(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"))
	task2 := task.NewTask(noopJob, task.WithID("task2"), task.WithDependencies("task1"))

	graph, err := Build([]*task.Task{task1, task2})
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	if graph.Size() != 2 {
		t.Fatalf("节点数量错误，期望: 2, 实际: %d", graph.Size())
	}

	// 检查task1的dependents
	dependents := graph.Dependents("task1")
	if len(dependents) != 1 || dependents[0] != "task2" {
		t.Errorf("task1的dependents错误，期望: [task2], 实际: %v", dependents)
	}

	// 检查根节点
	roots := graph.Roots()
	if len(roots) != 1 || roots[0].ID() != "task1" {
		t.Errorf("根节点错误，期望: [task1]")
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"))
	task2 := task.NewTask(noopJob, task.WithID("task1"))

	_, err := Build([]*task.Task{task1, task2})
	if err == nil {
		t.Fatal("重复ID应该构建失败，但未返回错误")
	}
}

func TestBuild_MissingDependency(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"), task.WithDependencies("ghost"))

	_, err := Build([]*task.Task{task1})
	if err == nil {
		t.Fatal("依赖缺失应该构建失败，但未返回错误")
	}

	var missingErr *MissingDependencyError
	if !errors.As(err, &missingErr) {
		t.Fatalf("错误类型错误，期望: MissingDependencyError, 实际: %T", err)
	}
	if missingErr.TaskID != "task1" || missingErr.DependencyID != "ghost" {
		t.Errorf("错误内容错误: %v", missingErr)
	}
}

func TestBuild_CyclicDependency(t *testing.T) {
	taskX := task.NewTask(noopJob, task.WithID("x"), task.WithDependencies("y"))
	taskY := task.NewTask(noopJob, task.WithID("y"), task.WithDependencies("x"))

	_, err := Build([]*task.Task{taskX, taskY})
	if err == nil {
		t.Fatal("循环依赖应该构建失败，但未返回错误")
	}

	var cyclicErr *CyclicDependencyError
	if !errors.As(err, &cyclicErr) {
		t.Fatalf("错误类型错误，期望: CyclicDependencyError, 实际: %T", err)
	}
	if len(cyclicErr.Cycle) < 3 {
		t.Errorf("循环路径过短: %v", cyclicErr.Cycle)
	}
	// 循环路径首尾应闭合
	if cyclicErr.Cycle[0] != cyclicErr.Cycle[len(cyclicErr.Cycle)-1] {
		t.Errorf("循环路径未闭合: %v", cyclicErr.Cycle)
	}
}

func TestBuild_SelfDependency(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"), task.WithDependencies("task1"))

	_, err := Build([]*task.Task{task1})
	var cyclicErr *CyclicDependencyError
	if !errors.As(err, &cyclicErr) {
		t.Fatalf("自依赖应该返回CyclicDependencyError, 实际: %v", err)
	}
}

func TestGraph_Tags(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"), task.WithTag("io"))
	task2 := task.NewTask(noopJob, task.WithID("task2"), task.WithTag("cpu"))
	task3 := task.NewTask(noopJob, task.WithID("task3"))

	graph, err := Build([]*task.Task{task1, task2, task3})
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	tags := graph.Tags()
	if len(tags) != 3 {
		t.Fatalf("Tag数量错误，期望: 3, 实际: %d", len(tags))
	}
	// 排序后: cpu, default, io
	if tags[0] != "cpu" || tags[1] != task.DefaultTag || tags[2] != "io" {
		t.Errorf("Tag列表错误: %v", tags)
	}
}

func TestGraph_Nodes(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"))
	task2 := task.NewTask(noopJob, task.WithID("task2"), task.WithDependencies("task1"))
	task3 := task.NewTask(noopJob, task.WithID("task3"), task.WithDependencies("task1", "task2"))

	graph, err := Build([]*task.Task{task1, task2, task3})
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	nodes := graph.Nodes()
	if nodes["task3"].InDegree != 2 {
		t.Errorf("task3入度错误，期望: 2, 实际: %d", nodes["task3"].InDegree)
	}
	if len(nodes["task1"].OutEdges) != 2 {
		t.Errorf("task1出边错误，期望: 2条, 实际: %v", nodes["task1"].OutEdges)
	}
}

func TestGraph_Parents(t *testing.T) {
	task1 := task.NewTask(noopJob, task.WithID("task1"))
	task2 := task.NewTask(noopJob, task.WithID("task2"), task.WithDependencies("task1"))

	graph, err := Build([]*task.Task{task1, task2})
	if err != nil {
		t.Fatalf("构建DAG失败: %v", err)
	}

	parents, err := graph.Parents("task2")
	if err != nil {
		t.Fatalf("获取父节点失败: %v", err)
	}
	if len(parents) != 1 || parents[0] != "task1" {
		t.Errorf("task2父节点错误，期望: [task1], 实际: %v", parents)
	}
}
