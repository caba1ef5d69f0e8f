// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cron

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"github.com/robfig/cron/v3"
)

var (
	lock     = sync.Mutex{}
	started  = false
	baseCtx  = context.Background()
	c        = cron.New()
	tasks    = []*Task{}
	tasksMap = map[string]*Task{}
)

// Config represents a basic configuration interface that cron task
type Config interface {
	IsEnabled() bool
	DoRunAtStart() bool
	GetSchedule() string
}

// BaseConfig represents the basic config for a Cron task
type BaseConfig struct {
	Enabled    bool
	RunAtStart bool
	Schedule   string
}

// OlderThanConfig represents a cron task with OlderThan setting
type OlderThanConfig struct {
	BaseConfig
	OlderThan time.Duration
}

// IsEnabled returns the enabled status of the config
func (b *BaseConfig) IsEnabled() bool {
	return b.Enabled
}

// DoRunAtStart returns whether the task should be run at the start
func (b *BaseConfig) DoRunAtStart() bool {
	return b.RunAtStart
}

// GetSchedule returns the schedule for the base config
func (b *BaseConfig) GetSchedule() string {
	return b.Schedule
}

func baseConfigFrom(s setting.CronTask) BaseConfig {
	return BaseConfig{Enabled: s.Enabled, RunAtStart: s.RunAtStart, Schedule: s.Schedule}
}

// Task represents a Cron task
type Task struct {
	lock      sync.Mutex
	running   bool
	Name      string
	config    Config
	fun       func(context.Context, Config) error
	ExecTimes int64
}

// DoRunAtStart returns if this task should run at the start
func (t *Task) DoRunAtStart() bool {
	return t.config.DoRunAtStart()
}

// IsEnabled returns if this task is enabled as cron task
func (t *Task) IsEnabled() bool {
	return t.config.IsEnabled()
}

// Run will run the task incrementing the cron counter, a run is skipped while the previous one is still going
func (t *Task) Run() {
	t.lock.Lock()
	if t.running {
		t.lock.Unlock()
		log.Debug("Cron task %s is still running, skipping", t.Name)
		return
	}
	t.running = true
	t.ExecTimes++
	t.lock.Unlock()

	defer func() {
		t.lock.Lock()
		t.running = false
		t.lock.Unlock()
		if err := recover(); err != nil {
			log.Error("PANIC whilst running task: %s Value: %v\n%s", t.Name, err, debug.Stack())
		}
	}()

	start := time.Now()
	if err := t.fun(baseCtx, t.config); err != nil {
		log.Error("Cron task %s failed: %v", t.Name, err)
		return
	}
	log.Debug("Cron task %s finished in %v", t.Name, time.Since(start))
}

// GetTask gets the named task
func GetTask(name string) *Task {
	lock.Lock()
	defer lock.Unlock()
	return tasksMap[name]
}

// ListTasks returns the registered tasks in registration order
func ListTasks() []*Task {
	lock.Lock()
	defer lock.Unlock()
	return append([]*Task(nil), tasks...)
}

// RegisterTask allows a task to be registered with the cron service
func RegisterTask(name string, config Config, fun func(context.Context, Config) error) error {
	log.Debug("Registering task: %s", name)

	task := &Task{
		Name:   name,
		config: config,
		fun:    fun,
	}
	lock.Lock()
	locked := true
	defer func() {
		if locked {
			lock.Unlock()
		}
	}()
	if _, has := tasksMap[task.Name]; has {
		log.Error("A task with this name: %s has already been registered", name)
		return fmt.Errorf("duplicate task with name: %s", task.Name)
	}

	if config.IsEnabled() {
		if _, err := c.AddJob(config.GetSchedule(), task); err != nil {
			log.Error("Unable to register cron task with name: %s Error: %v", name, err)
			return err
		}
	}

	tasks = append(tasks, task)
	tasksMap[task.Name] = task
	if started && config.IsEnabled() && config.DoRunAtStart() {
		lock.Unlock()
		locked = false
		task.Run()
	}

	return nil
}

// RegisterTaskFatal will register a task but if there is an error log.Fatal
func RegisterTaskFatal(name string, config Config, fun func(context.Context, Config) error) {
	if err := RegisterTask(name, config, fun); err != nil {
		log.Fatal("Unable to register cron task %s Error: %v", name, err)
	}
}

// NewContext registers the tasks and starts the scheduler, the tasks run with ctx
func NewContext(ctx context.Context) {
	lock.Lock()
	if started {
		lock.Unlock()
		return
	}
	baseCtx = ctx
	lock.Unlock()

	initBasicTasks()

	lock.Lock()
	started = true
	runAtStart := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEnabled() && t.DoRunAtStart() {
			runAtStart = append(runAtStart, t)
		}
	}
	c.Start()
	lock.Unlock()

	for _, t := range runAtStart {
		go t.Run()
	}
}

// Shutdown stops the scheduler and waits for the running tasks
func Shutdown() {
	lock.Lock()
	defer lock.Unlock()
	if !started {
		return
	}
	<-c.Stop().Done()
	started = false
}
