// Copyright KubeArchive Authors
// SPDX-License-Identifier: Apache-2.0

// Code generated by controller-gen would normally populate this file;
// it is hand-written here in the same shape controller-gen produces.

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func (in *KafkaTopicSpec) DeepCopyInto(out *KafkaTopicSpec) {
	*out = *in
	if in.TopicName != nil {
		v := *in.TopicName
		out.TopicName = &v
	}
	if in.Partitions != nil {
		v := *in.Partitions
		out.Partitions = &v
	}
	if in.Replicas != nil {
		v := *in.Replicas
		out.Replicas = &v
	}
	if in.Config != nil {
		out.Config = make(map[string]ConfigValue, len(in.Config))
		for k, v := range in.Config {
			out.Config[k] = *v.DeepCopy()
		}
	}
}

func (in *KafkaTopicSpec) DeepCopy() *KafkaTopicSpec {
	if in == nil {
		return nil
	}
	out := new(KafkaTopicSpec)
	in.DeepCopyInto(out)
	return out
}

func (in *ConfigValue) DeepCopyInto(out *ConfigValue) {
	*out = *in
	if in.Scalar != nil {
		v := *in.Scalar
		out.Scalar = &v
	}
	if in.List != nil {
		out.List = make([]string, len(in.List))
		copy(out.List, in.List)
	}
	if in.Invalid != nil {
		out.Invalid = append([]byte(nil), in.Invalid...)
	}
}

func (in *ConfigValue) DeepCopy() *ConfigValue {
	if in == nil {
		return nil
	}
	out := new(ConfigValue)
	in.DeepCopyInto(out)
	return out
}

func (in *ReplicasChangeStatus) DeepCopyInto(out *ReplicasChangeStatus) {
	*out = *in
}

func (in *ReplicasChangeStatus) DeepCopy() *ReplicasChangeStatus {
	if in == nil {
		return nil
	}
	out := new(ReplicasChangeStatus)
	in.DeepCopyInto(out)
	return out
}

func (in *KafkaTopicStatus) DeepCopyInto(out *KafkaTopicStatus) {
	*out = *in
	if in.ObservedGeneration != nil {
		v := *in.ObservedGeneration
		out.ObservedGeneration = &v
	}
	if in.TopicName != nil {
		v := *in.TopicName
		out.TopicName = &v
	}
	if in.TopicID != nil {
		v := *in.TopicID
		out.TopicID = &v
	}
	if in.Conditions != nil {
		out.Conditions = make([]metav1.Condition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
	if in.ReplicasChange != nil {
		out.ReplicasChange = in.ReplicasChange.DeepCopy()
	}
}

func (in *KafkaTopicStatus) DeepCopy() *KafkaTopicStatus {
	if in == nil {
		return nil
	}
	out := new(KafkaTopicStatus)
	in.DeepCopyInto(out)
	return out
}

func (in *KafkaTopic) DeepCopyInto(out *KafkaTopic) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

func (in *KafkaTopic) DeepCopy() *KafkaTopic {
	if in == nil {
		return nil
	}
	out := new(KafkaTopic)
	in.DeepCopyInto(out)
	return out
}

func (in *KafkaTopic) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *KafkaTopicList) DeepCopyInto(out *KafkaTopicList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]KafkaTopic, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (in *KafkaTopicList) DeepCopy() *KafkaTopicList {
	if in == nil {
		return nil
	}
	out := new(KafkaTopicList)
	in.DeepCopyInto(out)
	return out
}

func (in *KafkaTopicList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
