// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	"bytes"
	"encoding/json"
	"strconv"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Annotations and finalizer recognized on a KafkaTopic resource.
const (
	ManagedAnnotation      = "strimzi.io/managed"
	PausedAnnotation       = "strimzi.io/paused-reconciliation"
	TopicOperatorFinalizer = "strimzi.io/topic-operator"
)

// KafkaTopicSpec defines the desired state of a KafkaTopic.
type KafkaTopicSpec struct {
	// TopicName is the Kafka-side topic name; defaults to metadata.name.
	// +optional
	TopicName *string `json:"topicName,omitempty"`
	// +optional
	Partitions *int32 `json:"partitions,omitempty"`
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`
	// Config holds the desired Kafka topic config. Each entry is a
	// scalar (string, bool, number) or a list of scalars; any other
	// JSON shape is accepted by the schema but rejected at
	// reconciliation time with an InvalidResource error.
	// +optional
	Config map[string]ConfigValue `json:"config,omitempty"`
}

// ConfigValue is a single spec.config entry. The CRD schema has no way
// to express "scalar or list of scalars" as a union, so this type
// accepts whatever JSON value is present and defers the scalar/list
// check to reconciliation; that is also where booleans and numbers get
// stringified via their natural string form, per the config diffing
// rule.
// +kubebuilder:pruning:PreserveUnknownFields
// +kubebuilder:validation:Schemaless
type ConfigValue struct {
	Scalar *string  `json:"-"`
	List   []string `json:"-"`
	// Invalid carries the raw JSON when it is neither a scalar nor a
	// list of scalars (an object, null, or a list containing one).
	Invalid json.RawMessage `json:"-"`
}

func (c *ConfigValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	if s, ok := scalarToString(raw); ok {
		c.Scalar = &s
		return nil
	}

	if items, ok := raw.([]interface{}); ok {
		list := make([]string, len(items))
		for i, item := range items {
			s, ok := scalarToString(item)
			if !ok {
				c.Invalid = append(json.RawMessage(nil), data...)
				return nil
			}
			list[i] = s
		}
		c.List = list
		return nil
	}

	c.Invalid = append(json.RawMessage(nil), data...)
	return nil
}

func (c ConfigValue) MarshalJSON() ([]byte, error) {
	switch {
	case c.List != nil:
		return json.Marshal(c.List)
	case c.Scalar != nil:
		return json.Marshal(*c.Scalar)
	case c.Invalid != nil:
		return c.Invalid, nil
	default:
		return []byte("null"), nil
	}
}

// scalarToString stringifies a decoded JSON scalar (string, bool,
// json.Number) in its natural string form, reporting false for
// anything else (object, nil, nested array).
func scalarToString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// ReplicasChangeState mirrors topic.ReplicasChangeState for the wire
// representation.
type ReplicasChangeState string

const (
	ReplicasChangeStatePending ReplicasChangeState = "Pending"
	ReplicasChangeStateOngoing ReplicasChangeState = "Ongoing"
)

// ReplicasChangeStatus is the embedded replication-factor-change state
// machine.
type ReplicasChangeStatus struct {
	State ReplicasChangeState `json:"state"`
	// +optional
	SessionID string `json:"sessionId,omitempty"`
	// +optional
	Message string `json:"message,omitempty"`
	TargetReplicas int32 `json:"targetReplicas"`
}

// KafkaTopicStatus defines the observed state of a KafkaTopic.
type KafkaTopicStatus struct {
	// +optional
	ObservedGeneration *int64 `json:"observedGeneration,omitempty"`
	// +optional
	TopicName *string `json:"topicName,omitempty"`
	// +optional
	TopicID *string `json:"topicId,omitempty"`
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
	// +optional
	ReplicasChange *ReplicasChangeStatus `json:"replicasChange,omitempty"`
}

//+kubebuilder:object:root=true
//+kubebuilder:subresource:status
//+kubebuilder:resource:shortName=kt
//+kubebuilder:printcolumn:name="Partitions",type=integer,JSONPath=`.spec.partitions`
//+kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.replicas`
//+kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`

// KafkaTopic is the Schema for the kafkatopics API: a declarative record
// describing a desired Kafka topic.
type KafkaTopic struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KafkaTopicSpec   `json:"spec,omitempty"`
	Status KafkaTopicStatus `json:"status,omitempty"`
}

//+kubebuilder:object:root=true

// KafkaTopicList contains a list of KafkaTopic.
type KafkaTopicList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []KafkaTopic `json:"items"`
}

func init() {
	SchemeBuilder.Register(&KafkaTopic{}, &KafkaTopicList{})
}
